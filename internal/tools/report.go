package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/edgegrid"
)

const (
	reportingService  = "reporting"
	reportingBasePath = "/reporting-api/v1"
)

// TrafficPoint is one interval of edge and origin traffic.
type TrafficPoint struct {
	Time        string `json:"time"`
	EdgeHits    int64  `json:"edgeHits"`
	EdgeBytes   int64  `json:"edgeBytes"`
	OriginHits  int64  `json:"originHits"`
	OriginBytes int64  `json:"originBytes"`
}

type trafficReportResponse struct {
	Data []TrafficPoint `json:"data"`
}

// CachePoint is one interval of cache effectiveness.
type CachePoint struct {
	Time        string  `json:"time"`
	EdgeHits    int64   `json:"edgeHits"`
	HitRate     float64 `json:"hitRate"`
	OffloadRate float64 `json:"offloadRate"`
}

type cacheReportResponse struct {
	Data []CachePoint `json:"data"`
}

func reportTools(deps Deps) []domain.ToolDefinition {
	props := map[string]*jsonschema.Schema{
		"start":    stringProp("Interval start, ISO 8601"),
		"end":      stringProp("Interval end, ISO 8601"),
		"interval": stringProp("FIVE_MINUTES, HOUR, or DAY (default HOUR)"),
		"cpcodes":  intListProp("Restrict to these CP codes"),
	}
	return []domain.ToolDefinition{
		{
			Name:        "report_traffic",
			Description: "Report edge and origin traffic over a time range.",
			InputSchema: inputSchema(props, "start", "end"),
			Handler:     reportTraffic(deps),
			Options:     domain.ToolOptions{CacheTTL: reportCacheTTL, Coalesce: true},
		},
		{
			Name:        "report_cache_performance",
			Description: "Report cache hit and offload rates over a time range.",
			InputSchema: inputSchema(props, "start", "end"),
			Handler:     reportCachePerformance(deps),
			Options:     domain.ToolOptions{CacheTTL: reportCacheTTL, Coalesce: true},
		},
	}
}

type reportArgs struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Interval string `json:"interval"`
	CPCodes  []int  `json:"cpcodes"`
}

func (a reportArgs) query(op string) (url.Values, error) {
	interval := strings.ToUpper(strings.TrimSpace(a.Interval))
	if interval == "" {
		interval = "HOUR"
	}
	switch interval {
	case "FIVE_MINUTES", "HOUR", "DAY":
	default:
		return nil, domain.E(domain.CodeInvalidArgument, op,
			fmt.Sprintf("interval must be FIVE_MINUTES, HOUR, or DAY, got %q", a.Interval), nil)
	}
	query := url.Values{
		"start":    []string{a.Start},
		"end":      []string{a.End},
		"interval": []string{interval},
	}
	if len(a.CPCodes) > 0 {
		ids := make([]string, len(a.CPCodes))
		for i, code := range a.CPCodes {
			ids[i] = strconv.Itoa(code)
		}
		query.Set("objectIds", strings.Join(ids, ","))
	}
	return query, nil
}

func reportTraffic(deps Deps) domain.Handler {
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[reportArgs](req.Args)
		if err != nil {
			return nil, err
		}
		query, err := in.query("tools.report_traffic")
		if err != nil {
			return nil, err
		}
		var resp trafficReportResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: reportingService,
			Method:  http.MethodGet,
			Path:    reportingBasePath + "/reports/traffic/data",
			Query:   query,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Data, nil
	}
}

func reportCachePerformance(deps Deps) domain.Handler {
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[reportArgs](req.Args)
		if err != nil {
			return nil, err
		}
		query, err := in.query("tools.report_cache_performance")
		if err != nil {
			return nil, err
		}
		var resp cacheReportResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: reportingService,
			Method:  http.MethodGet,
			Path:    reportingBasePath + "/reports/cache-performance/data",
			Query:   query,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Data, nil
	}
}
