package tools

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetlistList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-list/v2/network-lists", r.URL.Path)
		assert.Equal(t, "office", r.URL.Query().Get("search"))
		assert.Equal(t, "IP", r.URL.Query().Get("listType"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"networkLists":[
			{"uniqueId":"12_OFFICE","name":"office egress","type":"IP","elementCount":4,"syncPoint":7}
		]}`)
	}))
	defer srv.Close()

	args := `{"search":"office","type":"ip"}`
	out, err := callTool(t, testDeps(nil), "netlist_list", args, toolsCustomer(srv))
	require.NoError(t, err)

	lists, ok := out.([]NetworkList)
	require.True(t, ok)
	require.Len(t, lists, 1)
	assert.Equal(t, "12_OFFICE", lists[0].UniqueID)
	assert.Equal(t, 7, lists[0].SyncPoint)
}

func TestNetlistGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/network-list/v2/network-lists/12_OFFICE", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("extended"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"uniqueId":"12_OFFICE","name":"office egress","syncPoint":7,
			"list":["192.0.2.0/24","198.51.100.7"]}`)
	}))
	defer srv.Close()

	out, err := callTool(t, testDeps(nil), "netlist_get", `{"uniqueId":"12_OFFICE"}`, toolsCustomer(srv))
	require.NoError(t, err)

	list, ok := out.(NetworkList)
	require.True(t, ok)
	assert.Equal(t, []string{"192.0.2.0/24", "198.51.100.7"}, list.List)
}

func TestNetlistUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/network-list/v2/network-lists/12_OFFICE", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"192.0.2.0/24"}, body["list"])
		assert.Equal(t, float64(7), body["syncPoint"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"uniqueId":"12_OFFICE","name":"office egress","syncPoint":8,"elementCount":1}`)
	}))
	defer srv.Close()

	args := `{"uniqueId":"12_OFFICE","elements":["192.0.2.0/24"],"syncPoint":7}`
	out, err := callTool(t, testDeps(nil), "netlist_update", args, toolsCustomer(srv))
	require.NoError(t, err)

	list, ok := out.(NetworkList)
	require.True(t, ok)
	assert.Equal(t, 8, list.SyncPoint)
}

func TestNetlistActivate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/network-list/v2/network-lists/12_OFFICE/environments/PRODUCTION/activate", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "block scanner", body["comment"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"activationId":881,"activationStatus":"PENDING_ACTIVATION"}`)
	}))
	defer srv.Close()

	args := `{"uniqueId":"12_OFFICE","network":"production","comment":"block scanner"}`
	out, err := callTool(t, testDeps(nil), "netlist_activate", args, toolsCustomer(srv))
	require.NoError(t, err)

	act, ok := out.(netlistActivation)
	require.True(t, ok)
	assert.Equal(t, 881, act.ActivationID)
	assert.Equal(t, "PENDING_ACTIVATION", act.ActivationStatus)
}
