package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthTrackerReport(t *testing.T) {
	tracker := NewHealthTracker()
	beat := tracker.Register("sweeper", 10*time.Millisecond)
	beat.Beat()

	report := tracker.Report()
	require.Len(t, report.Components, 1)
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "sweeper", report.Components[0].Name)

	time.Sleep(30 * time.Millisecond)

	report = tracker.Report()
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "stale", report.Components[0].Status)
}

func TestHealthTrackerSortsComponents(t *testing.T) {
	tracker := NewHealthTracker()
	tracker.Register("watcher", time.Minute).Beat()
	tracker.Register("cache", time.Minute).Beat()

	report := tracker.Report()
	require.Len(t, report.Components, 2)
	assert.Equal(t, "cache", report.Components[0].Name)
	assert.Equal(t, "watcher", report.Components[1].Name)
}
