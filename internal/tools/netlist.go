package tools

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/edgegrid"
)

const (
	netlistService  = "network-lists"
	netlistBasePath = "/network-list/v2"
)

// NetworkList is one IP or GEO network list. List elements are present
// only on extended reads.
type NetworkList struct {
	UniqueID     string   `json:"uniqueId"`
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description,omitempty"`
	ElementCount int      `json:"elementCount,omitempty"`
	SyncPoint    int      `json:"syncPoint"`
	List         []string `json:"list,omitempty"`
}

type networkListsResponse struct {
	NetworkLists []NetworkList `json:"networkLists"`
}

type netlistActivation struct {
	ActivationID     int    `json:"activationId"`
	ActivationStatus string `json:"activationStatus,omitempty"`
}

func netlistTools(deps Deps) []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "netlist_list",
			Description: "List network lists, optionally filtered by search string or list type.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"search": stringProp("Substring to match against list names"),
				"type":   stringProp("Restrict to IP or GEO lists"),
			}),
			Handler: netlistList(deps),
			Options: domain.ToolOptions{CacheTTL: listCacheTTL},
		},
		{
			Name:        "netlist_get",
			Description: "Fetch one network list, including its elements.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"uniqueId": stringProp("Network list ID"),
			}, "uniqueId"),
			Handler: netlistGet(deps),
		},
		{
			Name:        "netlist_update",
			Description: "Replace a network list's elements. The syncPoint guards against concurrent edits.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"uniqueId":    stringProp("Network list ID"),
				"elements":    stringListProp("Replacement list elements"),
				"syncPoint":   intProp("Sync point from the last read"),
				"description": stringProp("Updated description"),
			}, "uniqueId", "elements", "syncPoint"),
			Handler: netlistUpdate(deps),
		},
		{
			Name:        "netlist_activate",
			Description: "Activate a network list on the staging or production network.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"uniqueId": stringProp("Network list ID"),
				"network":  stringProp("STAGING or PRODUCTION"),
				"comment":  stringProp("Activation comment"),
			}, "uniqueId", "network"),
			Handler: netlistActivate(deps),
		},
	}
}

func netlistList(deps Deps) domain.Handler {
	type args struct {
		Search string `json:"search"`
		Type   string `json:"type"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		query := url.Values{}
		if in.Search != "" {
			query.Set("search", in.Search)
		}
		if in.Type != "" {
			query.Set("listType", strings.ToUpper(in.Type))
		}
		var resp networkListsResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: netlistService,
			Method:  http.MethodGet,
			Path:    netlistBasePath + "/network-lists",
			Query:   query,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.NetworkLists, nil
	}
}

func netlistGet(deps Deps) domain.Handler {
	type args struct {
		UniqueID string `json:"uniqueId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var list NetworkList
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: netlistService,
			Method:  http.MethodGet,
			Path:    netlistBasePath + "/network-lists/" + url.PathEscape(in.UniqueID),
			Query:   url.Values{"extended": []string{"true"}},
		}, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
}

func netlistUpdate(deps Deps) domain.Handler {
	type args struct {
		UniqueID    string   `json:"uniqueId"`
		Elements    []string `json:"elements"`
		SyncPoint   int      `json:"syncPoint"`
		Description string   `json:"description"`
	}
	type body struct {
		List        []string `json:"list"`
		SyncPoint   int      `json:"syncPoint"`
		Description string   `json:"description,omitempty"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var list NetworkList
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: netlistService,
			Method:  http.MethodPut,
			Path:    netlistBasePath + "/network-lists/" + url.PathEscape(in.UniqueID),
			Body: body{
				List:        in.Elements,
				SyncPoint:   in.SyncPoint,
				Description: in.Description,
			},
		}, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
}

func netlistActivate(deps Deps) domain.Handler {
	type args struct {
		UniqueID string `json:"uniqueId"`
		Network  string `json:"network"`
		Comment  string `json:"comment"`
	}
	type body struct {
		Comment string `json:"comment,omitempty"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		network, err := activationNetwork(in.Network, "tools.netlist_activate")
		if err != nil {
			return nil, err
		}
		var activation netlistActivation
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: netlistService,
			Method:  http.MethodPost,
			Path: netlistBasePath + "/network-lists/" + url.PathEscape(in.UniqueID) +
				"/environments/" + network + "/activate",
			Body: body{Comment: in.Comment},
		}, &activation); err != nil {
			return nil, err
		}
		return activation, nil
	}
}
