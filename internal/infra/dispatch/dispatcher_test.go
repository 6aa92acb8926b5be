package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/callcache"
	"edgemcp/internal/infra/changelist"
	"edgemcp/internal/infra/edgegrid"
	"edgemcp/internal/infra/telemetry"
	"edgemcp/internal/tools"
)

type fakeResolver struct {
	defaultSection string
	sections       map[string]domain.CustomerContext
}

func (f *fakeResolver) Resolve(section string) (domain.CustomerContext, error) {
	if section == "" {
		section = f.defaultSection
	}
	customer, ok := f.sections[section]
	if !ok {
		return domain.CustomerContext{}, domain.E(domain.CodeNotFound, "edgegrid.resolve", fmt.Sprintf("section %q", section), domain.ErrCustomerNotFound)
	}
	return customer, nil
}

func (f *fakeResolver) Sections() []string {
	names := make([]string, 0, len(f.sections))
	for name := range f.sections {
		names = append(names, name)
	}
	return names
}

type recordingMetrics struct {
	*telemetry.NoopMetrics
	mu         sync.Mutex
	dispatches []domain.DispatchMetric
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{NoopMetrics: telemetry.NewNoopMetrics()}
}

func (r *recordingMetrics) ObserveDispatch(metric domain.DispatchMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches = append(r.dispatches, metric)
}

func (r *recordingMetrics) last(t *testing.T) domain.DispatchMetric {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.dispatches)
	return r.dispatches[len(r.dispatches)-1]
}

func testResolver() *fakeResolver {
	return &fakeResolver{
		defaultSection: "default",
		sections: map[string]domain.CustomerContext{
			"default": {Section: "default"},
			"acme":    {Section: "acme", AccountSwitchKey: "ACC-1"},
		},
	}
}

func zoneListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"zone":     {Type: "string"},
			"customer": {Type: "string"},
			"format":   {Type: "string"},
		},
		Required:             []string{"zone"},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func newTestDispatcher(t *testing.T, handler domain.Handler, opts domain.ToolOptions) (*Dispatcher, *recordingMetrics) {
	t.Helper()

	registry := domain.NewRegistry()
	require.NoError(t, registry.Register(domain.ToolDefinition{
		Name:        "dns_zone_get",
		Description: "Fetch one zone.",
		InputSchema: zoneListSchema(),
		Handler:     handler,
		Options:     opts,
	}))
	registry.Freeze()

	metrics := newRecordingMetrics()
	dispatcher := NewDispatcher(registry, testResolver(), Options{
		Cache:   callcache.New(callcache.Options{Metrics: metrics}),
		Metrics: metrics,
	})
	return dispatcher, metrics
}

func TestDispatcher_Success(t *testing.T) {
	var got domain.HandlerRequest
	dispatcher, metrics := newTestDispatcher(t, func(_ context.Context, req domain.HandlerRequest) (any, error) {
		got = req
		return map[string]any{"zone": "example.com", "type": "PRIMARY"}, nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com"}`),
	})

	require.False(t, resp.IsError)
	require.Len(t, resp.Blocks, 1)
	assert.Equal(t, domain.ContentKindJSON, resp.Blocks[0].Kind)
	assert.Contains(t, resp.Blocks[0].Text, "example.com")
	assert.NotNil(t, resp.Structured)

	assert.Equal(t, "default", got.Customer.Section)
	assert.JSONEq(t, `{"zone":"example.com"}`, string(got.Args))

	metric := metrics.last(t)
	assert.Equal(t, domain.DispatchStatusSuccess, metric.Status)
	assert.Equal(t, domain.DispatchReasonSuccess, metric.Reason)
	assert.Equal(t, "dns_zone_get", metric.Tool)
	assert.Equal(t, "default", metric.Section)
}

func TestDispatcher_UnknownTool(t *testing.T) {
	dispatcher, metrics := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		return nil, nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{Name: "no_such_tool"})

	require.True(t, resp.IsError)
	assert.Equal(t, domain.CodeNotFound, resp.Code)
	require.Len(t, resp.Blocks, 1)
	assert.Contains(t, resp.Blocks[0].Text, "no_such_tool")
	assert.Contains(t, resp.Blocks[0].Text, "[NOT_FOUND]")

	metric := metrics.last(t)
	assert.Equal(t, domain.DispatchReasonUnknownTool, metric.Reason)
	assert.Equal(t, "unknown", metric.Tool)
}

func TestDispatcher_InvalidArguments(t *testing.T) {
	called := false
	dispatcher, metrics := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		called = true
		return nil, nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{}`),
	})

	require.True(t, resp.IsError)
	assert.Equal(t, domain.CodeInvalidArgument, resp.Code)
	assert.False(t, called, "handler must not run on invalid arguments")
	assert.Equal(t, domain.DispatchReasonInvalidArgs, metrics.last(t).Reason)
}

func TestDispatcher_MalformedArguments(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		return nil, nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":`),
	})

	require.True(t, resp.IsError)
	assert.Equal(t, domain.CodeInvalidArgument, resp.Code)
}

func TestDispatcher_UnknownCustomer(t *testing.T) {
	called := false
	dispatcher, metrics := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		called = true
		return nil, nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com","customer":"ghost"}`),
	})

	require.True(t, resp.IsError)
	assert.Equal(t, domain.CodeUnauthenticated, resp.Code)
	assert.Contains(t, resp.Blocks[0].Text, "ghost")
	assert.False(t, called, "handler must not run without credentials")
	assert.Equal(t, domain.DispatchReasonAuthFailed, metrics.last(t).Reason)
}

func TestDispatcher_CustomerArgumentSelectsSection(t *testing.T) {
	var got domain.CustomerContext
	dispatcher, _ := newTestDispatcher(t, func(_ context.Context, req domain.HandlerRequest) (any, error) {
		got = req.Customer
		return "ok", nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com","customer":"acme"}`),
	})

	require.False(t, resp.IsError)
	assert.Equal(t, "acme", got.Section)
	assert.Equal(t, "ACC-1", got.AccountSwitchKey)
}

func TestDispatcher_HandlerErrorBecomesResult(t *testing.T) {
	dispatcher, metrics := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		return nil, domain.E(domain.CodeConflict, "changelist.validate", "zone was modified concurrently", nil)
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com"}`),
	})

	require.True(t, resp.IsError)
	assert.Equal(t, domain.CodeConflict, resp.Code)
	assert.Contains(t, resp.Blocks[0].Text, "[CONFLICT]")
	assert.Contains(t, resp.Blocks[0].Text, "zone was modified concurrently")
	assert.Equal(t, domain.DispatchReasonConflict, metrics.last(t).Reason)
}

func TestDispatcher_HandlerContextCanceled(t *testing.T) {
	dispatcher, metrics := newTestDispatcher(t, func(ctx context.Context, _ domain.HandlerRequest) (any, error) {
		return nil, ctx.Err()
	}, domain.ToolOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := dispatcher.Dispatch(ctx, domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com"}`),
	})

	require.True(t, resp.IsError)
	assert.Equal(t, domain.CodeCanceled, resp.Code)
	assert.Equal(t, domain.DispatchReasonCanceled, metrics.last(t).Reason)
}

func TestDispatcher_FormatArgument(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		return map[string]any{"zone": "example.com"}, nil
	}, domain.ToolOptions{})

	resp := dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com","format":"markdown"}`),
	})

	require.False(t, resp.IsError)
	require.Len(t, resp.Blocks, 1)
	assert.Equal(t, domain.ContentKindMarkdown, resp.Blocks[0].Kind)
}

func TestDispatcher_CachedCallRunsOnce(t *testing.T) {
	var calls int
	var mu sync.Mutex
	dispatcher, _ := newTestDispatcher(t, func(context.Context, domain.HandlerRequest) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return []any{map[string]any{"zone": "example.com"}}, nil
	}, domain.ToolOptions{CacheTTL: time.Minute, Coalesce: true})

	args := json.RawMessage(`{"zone":"example.com"}`)
	first := dispatcher.Dispatch(context.Background(), domain.ToolCall{Name: "dns_zone_get", Arguments: args})
	second := dispatcher.Dispatch(context.Background(), domain.ToolCall{Name: "dns_zone_get", Arguments: args})

	require.False(t, first.IsError)
	require.False(t, second.IsError)
	assert.Equal(t, first.Blocks, second.Blocks)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

// TestDispatcher_ZonesListCacheFlow drives the real dns_zones_list tool
// through the dispatcher with the default customer: the first call
// reaches the upstream, the second is served from the cache.
func TestDispatcher_ZonesListCacheFlow(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/config-dns/v2/zones", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"zones":[{"zone":"example.com","type":"PRIMARY","activationState":"ACTIVE"}]}`))
	}))
	defer srv.Close()

	resolver := &fakeResolver{
		defaultSection: "default",
		sections: map[string]domain.CustomerContext{
			"default": {
				Section: "default",
				Credentials: domain.Credentials{
					Host:         strings.TrimPrefix(srv.URL, "http://"),
					ClientToken:  "akab-client",
					ClientSecret: "secret",
					AccessToken:  "akab-access",
				},
			},
		},
	}
	client := edgegrid.NewClient(edgegrid.Options{
		Scheme: "http",
		Retry:  edgegrid.RetryPolicy{MaxAttempts: 1},
	})

	registry := domain.NewRegistry()
	require.NoError(t, tools.Register(registry, tools.Deps{
		Client:         client,
		Engine:         changelist.NewEngine(client, changelist.Options{}),
		Resolver:       resolver,
		DefaultSection: "default",
	}))
	registry.Freeze()

	dispatcher := NewDispatcher(registry, resolver, Options{
		Cache: callcache.New(callcache.Options{}),
	})

	args := json.RawMessage(`{"search":"example"}`)
	first := dispatcher.Dispatch(context.Background(), domain.ToolCall{Name: "dns_zones_list", Arguments: args})
	second := dispatcher.Dispatch(context.Background(), domain.ToolCall{Name: "dns_zones_list", Arguments: args})

	require.False(t, first.IsError)
	require.False(t, second.IsError)
	assert.Equal(t, first.Blocks, second.Blocks)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDispatcher_CacheSeparatesCustomers(t *testing.T) {
	var sections []string
	var mu sync.Mutex
	dispatcher, _ := newTestDispatcher(t, func(_ context.Context, req domain.HandlerRequest) (any, error) {
		mu.Lock()
		sections = append(sections, req.Customer.Section)
		mu.Unlock()
		return "ok", nil
	}, domain.ToolOptions{CacheTTL: time.Minute})

	dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com"}`),
	})
	dispatcher.Dispatch(context.Background(), domain.ToolCall{
		Name:      "dns_zone_get",
		Arguments: json.RawMessage(`{"zone":"example.com","customer":"acme"}`),
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"default", "acme"}, sections)
}
