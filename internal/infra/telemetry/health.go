package telemetry

import (
	"sort"
	"sync"
	"time"
)

// staleFactor is how many missed intervals mark a component degraded.
const staleFactor = 2

// Heartbeat is a liveness signal owned by one background loop.
type Heartbeat struct {
	name     string
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// Beat records that the owning loop is still making progress.
func (h *Heartbeat) Beat() {
	h.mu.Lock()
	h.last = time.Now()
	h.mu.Unlock()
}

func (h *Heartbeat) lastBeat() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// ComponentHealth is one component's entry in a health report.
type ComponentHealth struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	LastBeat time.Time `json:"lastBeat,omitempty"`
}

// HealthReport is the aggregate served on /healthz.
type HealthReport struct {
	Status     string            `json:"status"`
	Components []ComponentHealth `json:"components,omitempty"`
}

// HealthTracker aggregates heartbeats from background loops into a
// single health report.
type HealthTracker struct {
	mu         sync.Mutex
	heartbeats []*Heartbeat
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{}
}

// Register adds a component expected to beat roughly every interval.
// A component is reported degraded once it misses two intervals.
func (t *HealthTracker) Register(name string, interval time.Duration) *Heartbeat {
	hb := &Heartbeat{name: name, interval: interval, last: time.Now()}
	t.mu.Lock()
	t.heartbeats = append(t.heartbeats, hb)
	t.mu.Unlock()
	return hb
}

// Report returns the current aggregate health.
func (t *HealthTracker) Report() HealthReport {
	t.mu.Lock()
	heartbeats := make([]*Heartbeat, len(t.heartbeats))
	copy(heartbeats, t.heartbeats)
	t.mu.Unlock()

	report := HealthReport{Status: "ok"}
	now := time.Now()
	for _, hb := range heartbeats {
		status := "ok"
		last := hb.lastBeat()
		if now.Sub(last) > staleFactor*hb.interval {
			status = "stale"
			report.Status = "degraded"
		}
		report.Components = append(report.Components, ComponentHealth{
			Name:     hb.name,
			Status:   status,
			LastBeat: last,
		})
	}
	sort.Slice(report.Components, func(i, j int) bool {
		return report.Components[i].Name < report.Components[j].Name
	})
	return report
}
