package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/edgegrid"
)

const (
	papiService  = "papi"
	papiBasePath = "/papi/v1"
)

// Property is the upstream view of one delivery property.
type Property struct {
	PropertyID        string `json:"propertyId"`
	PropertyName      string `json:"propertyName"`
	ContractID        string `json:"contractId,omitempty"`
	GroupID           string `json:"groupId,omitempty"`
	LatestVersion     int    `json:"latestVersion,omitempty"`
	ProductionVersion int    `json:"productionVersion,omitempty"`
	StagingVersion    int    `json:"stagingVersion,omitempty"`
}

type propertiesResponse struct {
	Properties struct {
		Items []Property `json:"items"`
	} `json:"properties"`
}

// RuleTree carries a property version's rule tree verbatim; the rules
// payload is opaque to this server.
type RuleTree struct {
	PropertyID      string          `json:"propertyId,omitempty"`
	PropertyVersion int             `json:"propertyVersion,omitempty"`
	RuleFormat      string          `json:"ruleFormat,omitempty"`
	Rules           json.RawMessage `json:"rules"`
}

type versionCreateResponse struct {
	PropertyVersion int    `json:"propertyVersion"`
	VersionLink     string `json:"versionLink,omitempty"`
}

// PropertyActivation is the upstream state of one property activation.
type PropertyActivation struct {
	ActivationID    string `json:"activationId"`
	PropertyID      string `json:"propertyId,omitempty"`
	PropertyVersion int    `json:"propertyVersion,omitempty"`
	Network         string `json:"network,omitempty"`
	Status          string `json:"status"`
	Note            string `json:"note,omitempty"`
}

// Hostname maps one property hostname to its edge hostname.
type Hostname struct {
	CnameFrom  string `json:"cnameFrom"`
	CnameTo    string `json:"cnameTo,omitempty"`
	CertStatus string `json:"certStatus,omitempty"`
}

type hostnamesResponse struct {
	Hostnames struct {
		Items []Hostname `json:"items"`
	} `json:"hostnames"`
}

func propertyTools(deps Deps) []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "property_list",
			Description: "List delivery properties, optionally scoped to a contract and group.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"contractId": stringProp("Restrict to one contract"),
				"groupId":    stringProp("Restrict to one group"),
			}),
			Handler: propertyList(deps),
			Options: domain.ToolOptions{CacheTTL: listCacheTTL},
		},
		{
			Name:        "property_get",
			Description: "Fetch one property by ID.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"propertyId": stringProp("Property ID, e.g. prp_12345"),
			}, "propertyId"),
			Handler: propertyGet(deps),
		},
		{
			Name:        "property_rules_get",
			Description: "Fetch the rule tree of a property version.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"propertyId": stringProp("Property ID"),
				"version":    intProp("Property version"),
			}, "propertyId", "version"),
			Handler: propertyRulesGet(deps),
			Options: domain.ToolOptions{CacheTTL: rulesCacheTTL},
		},
		{
			Name:        "property_version_create",
			Description: "Create a new editable property version from an existing one.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"propertyId":  stringProp("Property ID"),
				"baseVersion": intProp("Version to copy from"),
			}, "propertyId", "baseVersion"),
			Handler: propertyVersionCreate(deps),
		},
		{
			Name:        "property_activate",
			Description: "Activate a property version on the staging or production network.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"propertyId":   stringProp("Property ID"),
				"version":      intProp("Version to activate"),
				"network":      stringProp("STAGING or PRODUCTION"),
				"note":         stringProp("Activation note"),
				"notifyEmails": stringListProp("Addresses notified when the activation settles"),
			}, "propertyId", "version", "network"),
			Handler: propertyActivate(deps),
		},
		{
			Name:        "property_activation_status",
			Description: "Report the state of a property activation.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"propertyId":   stringProp("Property ID"),
				"activationId": stringProp("Activation to inspect"),
			}, "propertyId", "activationId"),
			Handler: propertyActivationStatus(deps),
		},
		{
			Name:        "property_hostnames_list",
			Description: "List the hostnames of a property version.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"propertyId": stringProp("Property ID"),
				"version":    intProp("Property version"),
			}, "propertyId", "version"),
			Handler: propertyHostnamesList(deps),
		},
	}
}

func propertyList(deps Deps) domain.Handler {
	type args struct {
		ContractID string `json:"contractId"`
		GroupID    string `json:"groupId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		query := url.Values{}
		if in.ContractID != "" {
			query.Set("contractId", in.ContractID)
		}
		if in.GroupID != "" {
			query.Set("groupId", in.GroupID)
		}
		var resp propertiesResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodGet,
			Path:    papiBasePath + "/properties",
			Query:   query,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Properties.Items, nil
	}
}

func propertyGet(deps Deps) domain.Handler {
	type args struct {
		PropertyID string `json:"propertyId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var resp propertiesResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodGet,
			Path:    papiBasePath + "/properties/" + url.PathEscape(in.PropertyID),
		}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Properties.Items) == 0 {
			return nil, domain.E(domain.CodeNotFound, "tools.property_get",
				fmt.Sprintf("property %q", in.PropertyID), nil)
		}
		return resp.Properties.Items[0], nil
	}
}

func propertyRulesGet(deps Deps) domain.Handler {
	type args struct {
		PropertyID string `json:"propertyId"`
		Version    int    `json:"version"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var tree RuleTree
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodGet,
			Path: fmt.Sprintf("%s/properties/%s/versions/%d/rules",
				papiBasePath, url.PathEscape(in.PropertyID), in.Version),
		}, &tree); err != nil {
			return nil, err
		}
		return tree, nil
	}
}

func propertyVersionCreate(deps Deps) domain.Handler {
	type args struct {
		PropertyID  string `json:"propertyId"`
		BaseVersion int    `json:"baseVersion"`
	}
	type body struct {
		CreateFromVersion int `json:"createFromVersion"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var resp versionCreateResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodPost,
			Path:    papiBasePath + "/properties/" + url.PathEscape(in.PropertyID) + "/versions",
			Body:    body{CreateFromVersion: in.BaseVersion},
		}, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	}
}

func propertyActivate(deps Deps) domain.Handler {
	type args struct {
		PropertyID   string   `json:"propertyId"`
		Version      int      `json:"version"`
		Network      string   `json:"network"`
		Note         string   `json:"note"`
		NotifyEmails []string `json:"notifyEmails"`
	}
	type body struct {
		PropertyVersion int      `json:"propertyVersion"`
		Network         string   `json:"network"`
		Note            string   `json:"note,omitempty"`
		NotifyEmails    []string `json:"notifyEmails,omitempty"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		network, err := activationNetwork(in.Network, "tools.property_activate")
		if err != nil {
			return nil, err
		}
		var resp PropertyActivation
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodPost,
			Path:    papiBasePath + "/properties/" + url.PathEscape(in.PropertyID) + "/activations",
			Body: body{
				PropertyVersion: in.Version,
				Network:         network,
				Note:            in.Note,
				NotifyEmails:    in.NotifyEmails,
			},
		}, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	}
}

func propertyActivationStatus(deps Deps) domain.Handler {
	type args struct {
		PropertyID   string `json:"propertyId"`
		ActivationID string `json:"activationId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var resp PropertyActivation
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodGet,
			Path: fmt.Sprintf("%s/properties/%s/activations/%s",
				papiBasePath, url.PathEscape(in.PropertyID), url.PathEscape(in.ActivationID)),
		}, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	}
}

func propertyHostnamesList(deps Deps) domain.Handler {
	type args struct {
		PropertyID string `json:"propertyId"`
		Version    int    `json:"version"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var resp hostnamesResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: papiService,
			Method:  http.MethodGet,
			Path: fmt.Sprintf("%s/properties/%s/versions/%d/hostnames",
				papiBasePath, url.PathEscape(in.PropertyID), in.Version),
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Hostnames.Items, nil
	}
}

// activationNetwork normalizes and validates a network argument shared
// by the property and network list activation tools.
func activationNetwork(raw, op string) (string, error) {
	network := strings.ToUpper(strings.TrimSpace(raw))
	switch network {
	case "STAGING", "PRODUCTION":
		return network, nil
	default:
		return "", domain.E(domain.CodeInvalidArgument, op,
			fmt.Sprintf("network must be STAGING or PRODUCTION, got %q", raw), nil)
	}
}
