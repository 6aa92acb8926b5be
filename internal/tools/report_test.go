package tools

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgemcp/internal/domain"
)

func TestReportTraffic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reporting-api/v1/reports/traffic/data", r.URL.Path)
		assert.Equal(t, "2026-08-01T00:00:00Z", r.URL.Query().Get("start"))
		assert.Equal(t, "2026-08-02T00:00:00Z", r.URL.Query().Get("end"))
		assert.Equal(t, "HOUR", r.URL.Query().Get("interval"))
		assert.Equal(t, "12345,67890", r.URL.Query().Get("objectIds"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"time":"2026-08-01T00:00:00Z","edgeHits":120000,"edgeBytes":900000000,"originHits":8000,"originBytes":40000000}
		]}`)
	}))
	defer srv.Close()

	args := `{"start":"2026-08-01T00:00:00Z","end":"2026-08-02T00:00:00Z","cpcodes":[12345,67890]}`
	out, err := callTool(t, testDeps(nil), "report_traffic", args, toolsCustomer(srv))
	require.NoError(t, err)

	points, ok := out.([]TrafficPoint)
	require.True(t, ok)
	require.Len(t, points, 1)
	assert.Equal(t, int64(120000), points[0].EdgeHits)
}

func TestReportCachePerformance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reporting-api/v1/reports/cache-performance/data", r.URL.Path)
		assert.Equal(t, "DAY", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"time":"2026-08-01T00:00:00Z","edgeHits":120000,"hitRate":0.97,"offloadRate":0.94}]}`)
	}))
	defer srv.Close()

	args := `{"start":"2026-08-01T00:00:00Z","end":"2026-08-02T00:00:00Z","interval":"day"}`
	out, err := callTool(t, testDeps(nil), "report_cache_performance", args, toolsCustomer(srv))
	require.NoError(t, err)

	points, ok := out.([]CachePoint)
	require.True(t, ok)
	require.Len(t, points, 1)
	assert.InDelta(t, 0.97, points[0].HitRate, 0.0001)
}

func TestReport_BadInterval(t *testing.T) {
	args := `{"start":"2026-08-01T00:00:00Z","end":"2026-08-02T00:00:00Z","interval":"WEEK"}`
	_, err := callTool(t, testDeps(nil), "report_traffic", args, domain.CustomerContext{})
	require.Error(t, err)

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidArgument, code)
	assert.Contains(t, err.Error(), "WEEK")
}
