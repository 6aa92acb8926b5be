package tools

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/changelist"
)

type stubJournal struct {
	recs []domain.ActivationRecord
}

func (s *stubJournal) RecordActivation(rec domain.ActivationRecord) error {
	s.recs = append(s.recs, rec)
	return nil
}

func (s *stubJournal) RecentActivations(zone string, limit int) ([]domain.ActivationRecord, error) {
	var out []domain.ActivationRecord
	for i := len(s.recs) - 1; i >= 0; i-- {
		if zone != "" && s.recs[i].Zone != zone {
			continue
		}
		out = append(out, s.recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// dnsApplyFixture serves a full changelist cycle for example.com.
func dnsApplyFixture(t *testing.T, log *requestLog) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/config-dns/v2/changelists":
			assert.Equal(t, "example.com", r.URL.Query().Get("zone"))
			fmt.Fprint(w, `{"zone":"example.com","changeListId":"cl-1","zoneVersionId":"v-7"}`)
		case strings.HasPrefix(r.URL.Path, "/config-dns/v2/changelists/example.com/recordsets/"):
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/config-dns/v2/changelists/example.com/validate":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/config-dns/v2/changelists/example.com/submit":
			fmt.Fprint(w, `{"activationId":"act-42"}`)
		case r.URL.Path == "/config-dns/v2/zones/example.com/activations/act-42":
			fmt.Fprint(w, `{"zone":"example.com","activationId":"act-42","status":"ACTIVE"}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestDNSZonesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/config-dns/v2/zones", r.URL.Path)
		assert.Equal(t, "example", r.URL.Query().Get("search"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"zones":[
			{"zone":"example.com","type":"PRIMARY","activationState":"ACTIVE"},
			{"zone":"example.net","type":"SECONDARY"}
		]}`)
	}))
	defer srv.Close()

	out, err := callTool(t, testDeps(nil), "dns_zones_list", `{"search":"example"}`, toolsCustomer(srv))
	require.NoError(t, err)

	zones, ok := out.([]Zone)
	require.True(t, ok)
	require.Len(t, zones, 2)
	assert.Equal(t, "example.com", zones[0].Zone)
	assert.Equal(t, "SECONDARY", zones[1].Type)
}

func TestDNSZoneGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config-dns/v2/zones/example.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"zone":"example.com","type":"PRIMARY","contractId":"ctr_1","signAndServe":true}`)
	}))
	defer srv.Close()

	out, err := callTool(t, testDeps(nil), "dns_zone_get", `{"zone":"example.com"}`, toolsCustomer(srv))
	require.NoError(t, err)

	zone, ok := out.(Zone)
	require.True(t, ok)
	assert.Equal(t, "ctr_1", zone.ContractID)
	assert.True(t, zone.SignAndServe)
}

func TestDNSZoneCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/config-dns/v2/zones", r.URL.Path)
		assert.Equal(t, "ctr_1", r.URL.Query().Get("contractId"))
		assert.Equal(t, "grp_2", r.URL.Query().Get("gid"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "example.org", body["zone"])
		assert.Equal(t, "PRIMARY", body["type"])
		assert.Equal(t, true, body["signAndServe"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"zone":"example.org","type":"PRIMARY","contractId":"ctr_1","signAndServe":true}`)
	}))
	defer srv.Close()

	args := `{"zone":"example.org","contractId":"ctr_1","groupId":"grp_2","type":"primary","signAndServe":true}`
	out, err := callTool(t, testDeps(nil), "dns_zone_create", args, toolsCustomer(srv))
	require.NoError(t, err)

	zone, ok := out.(Zone)
	require.True(t, ok)
	assert.Equal(t, "example.org", zone.Zone)
}

func TestDNSZoneCreate_UnknownType(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	args := `{"zone":"example.org","contractId":"ctr_1","type":"TERTIARY"}`
	_, err := callTool(t, testDeps(nil), "dns_zone_create", args, toolsCustomer(srv))
	require.Error(t, err)

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidArgument, code)
	assert.Zero(t, hits)
}

func TestDNSRecordSetsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config-dns/v2/zones/example.com/recordsets", r.URL.Path)
		assert.Equal(t, "A,CNAME", r.URL.Query().Get("types"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recordsets":[{"name":"www.example.com","type":"A","ttl":300,"rdata":["192.0.2.10"]}]}`)
	}))
	defer srv.Close()

	args := `{"zone":"example.com","types":"A,CNAME"}`
	out, err := callTool(t, testDeps(nil), "dns_recordsets_list", args, toolsCustomer(srv))
	require.NoError(t, err)

	sets, ok := out.([]RecordSet)
	require.True(t, ok)
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"192.0.2.10"}, sets[0].Rdata)
}

func TestDNSRecordAdd(t *testing.T) {
	log := &requestLog{}
	srv := httptest.NewServer(dnsApplyFixture(t, log))
	defer srv.Close()

	args := `{"zone":"example.com","name":"www.example.com","type":"a","ttl":300,"rdata":["192.0.2.10"]}`
	out, err := callTool(t, testDeps(nil), "dns_record_add", args, toolsCustomer(srv))
	require.NoError(t, err)

	result, ok := out.(changelist.Result)
	require.True(t, ok)
	assert.Equal(t, "act-42", result.ActivationID)
	assert.Equal(t, domain.ChangelistActive, result.Changelist.Status)

	// Record type is upper-cased before it reaches the wire.
	assert.Contains(t, log.list(),
		"PUT /config-dns/v2/changelists/example.com/recordsets/www.example.com/A")
}

// TestDNSRecordAdd_SameZoneSerializes runs two adds for one zone at
// once; the zone gate admits them one at a time and both finish ACTIVE.
func TestDNSRecordAdd_SameZoneSerializes(t *testing.T) {
	log := &requestLog{}
	fixture := dnsApplyFixture(t, log)

	var mu sync.Mutex
	var inflight, maxInflight int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/config-dns/v2/changelists" {
			mu.Lock()
			inflight++
			if inflight > maxInflight {
				maxInflight = inflight
			}
			mu.Unlock()
		}
		if strings.HasPrefix(r.URL.Path, "/config-dns/v2/zones/") {
			defer func() {
				mu.Lock()
				inflight--
				mu.Unlock()
			}()
		}
		fixture(w, r)
	}))
	defer srv.Close()

	deps := testDeps(nil)
	customer := toolsCustomer(srv)
	argsByName := []string{
		`{"zone":"example.com","name":"www.example.com","type":"A","ttl":300,"rdata":["192.0.2.10"]}`,
		`{"zone":"example.com","name":"api.example.com","type":"A","ttl":300,"rdata":["192.0.2.11"]}`,
	}

	var group errgroup.Group
	for _, args := range argsByName {
		group.Go(func() error {
			out, err := callTool(t, deps, "dns_record_add", args, customer)
			if err != nil {
				return err
			}
			result, ok := out.(changelist.Result)
			if !ok {
				return fmt.Errorf("unexpected result type %T", out)
			}
			if result.Changelist.Status != domain.ChangelistActive {
				return fmt.Errorf("changelist finished %s", result.Changelist.Status)
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	var opened int
	for _, call := range log.list() {
		if call == "POST /config-dns/v2/changelists" {
			opened++
		}
	}
	assert.Equal(t, 2, opened)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxInflight)
}

func TestDNSRecordDelete(t *testing.T) {
	log := &requestLog{}
	srv := httptest.NewServer(dnsApplyFixture(t, log))
	defer srv.Close()

	args := `{"zone":"example.com","name":"old.example.com","type":"TXT"}`
	_, err := callTool(t, testDeps(nil), "dns_record_delete", args, toolsCustomer(srv))
	require.NoError(t, err)

	assert.Contains(t, log.list(),
		"DELETE /config-dns/v2/changelists/example.com/recordsets/old.example.com/TXT")
}

func TestDNSRecordsBatchUpdate(t *testing.T) {
	log := &requestLog{}
	srv := httptest.NewServer(dnsApplyFixture(t, log))
	defer srv.Close()

	args := `{"zone":"example.com","edits":[
		{"op":"add","name":"www.example.com","type":"aaaa","ttl":300,"rdata":["2001:db8::1"]},
		{"op":"DELETE","name":"old.example.com","type":"TXT"}
	]}`
	out, err := callTool(t, testDeps(nil), "dns_records_batch_update", args, toolsCustomer(srv))
	require.NoError(t, err)

	result, ok := out.(changelist.Result)
	require.True(t, ok)
	assert.Equal(t, "act-42", result.ActivationID)

	calls := log.list()
	assert.Contains(t, calls,
		"PUT /config-dns/v2/changelists/example.com/recordsets/www.example.com/AAAA")
	assert.Contains(t, calls,
		"DELETE /config-dns/v2/changelists/example.com/recordsets/old.example.com/TXT")
}

func TestDNSActivationStatusTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config-dns/v2/zones/example.com/activations/act-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"zone":"example.com","activationId":"act-9","status":"PENDING"}`)
	}))
	defer srv.Close()

	args := `{"zone":"example.com","activationId":"act-9"}`
	out, err := callTool(t, testDeps(nil), "dns_activation_status", args, toolsCustomer(srv))
	require.NoError(t, err)

	status, ok := out.(changelist.ActivationStatus)
	require.True(t, ok)
	assert.Equal(t, changelist.ActivationPending, status.Status)
}

func TestDNSActivationsRecent(t *testing.T) {
	journal := &stubJournal{}
	for i := range 3 {
		require.NoError(t, journal.RecordActivation(domain.ActivationRecord{
			Zone:         "example.com",
			ChangelistID: fmt.Sprintf("cl-%d", i+1),
			ActivationID: fmt.Sprintf("act-%d", i+1),
			Status:       domain.ChangelistActive,
			CompletedAt:  time.Now().UTC(),
		}))
	}

	out, err := callTool(t, testDeps(journal), "dns_activations_recent", `{"limit":2}`, domain.CustomerContext{})
	require.NoError(t, err)

	recs, ok := out.([]domain.ActivationRecord)
	require.True(t, ok)
	require.Len(t, recs, 2)
	assert.Equal(t, "act-3", recs[0].ActivationID)
}

func TestDNSActivationsRecent_JournalDisabled(t *testing.T) {
	_, err := callTool(t, testDeps(nil), "dns_activations_recent", `{}`, domain.CustomerContext{})
	require.Error(t, err)

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeFailedPrecond, code)
}
