package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/changelist"
	"edgemcp/internal/infra/edgegrid"
)

const (
	dnsService  = "edge-dns"
	dnsBasePath = "/config-dns/v2"
)

// Zone is the upstream view of one DNS zone.
type Zone struct {
	Zone            string `json:"zone"`
	Type            string `json:"type"`
	Comment         string `json:"comment,omitempty"`
	SignAndServe    bool   `json:"signAndServe,omitempty"`
	ActivationState string `json:"activationState,omitempty"`
	ContractID      string `json:"contractId,omitempty"`
}

type zoneListResponse struct {
	Zones []Zone `json:"zones"`
}

// RecordSet is one record set within a zone.
type RecordSet struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	TTL   int      `json:"ttl"`
	Rdata []string `json:"rdata"`
}

type recordSetsResponse struct {
	RecordSets []RecordSet `json:"recordsets"`
}

func dnsTools(deps Deps) []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "dns_zones_list",
			Description: "List DNS zones, optionally filtered by a search string.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"search": stringProp("Substring to match against zone names"),
			}),
			Handler: dnsZonesList(deps),
			Options: domain.ToolOptions{CacheTTL: listCacheTTL, Coalesce: true},
		},
		{
			Name:        "dns_zone_get",
			Description: "Fetch one DNS zone by name.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone": stringProp("Zone name, e.g. example.com"),
			}, "zone"),
			Handler: dnsZoneGet(deps),
		},
		{
			Name:        "dns_zone_create",
			Description: "Create a DNS zone under a contract.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":         stringProp("Zone name to create"),
				"contractId":   stringProp("Contract the zone bills against"),
				"groupId":      stringProp("Access control group"),
				"type":         stringProp("Zone type: PRIMARY, SECONDARY, or ALIAS (default PRIMARY)"),
				"comment":      stringProp("Free-form zone comment"),
				"signAndServe": boolProp("Enable DNSSEC sign-and-serve for the zone"),
			}, "zone", "contractId"),
			Handler: dnsZoneCreate(deps),
		},
		{
			Name:        "dns_recordsets_list",
			Description: "List record sets in a zone, optionally filtered by search string or record types.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":   stringProp("Zone name"),
				"search": stringProp("Substring to match against record names"),
				"types":  stringProp("Comma-separated record types, e.g. A,CNAME"),
			}, "zone"),
			Handler: dnsRecordSetsList(deps),
		},
		{
			Name:        "dns_record_add",
			Description: "Add a record set through a zone changelist and activate the change.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":           stringProp("Zone name"),
				"name":           stringProp("Fully qualified record name"),
				"type":           stringProp("Record type, e.g. A, CNAME, TXT"),
				"ttl":            intProp("Record TTL in seconds"),
				"rdata":          stringListProp("Record data values"),
				"timeoutSeconds": intProp("Overrides the activation poll timeout"),
			}, "zone", "name", "type", "ttl", "rdata"),
			Handler: dnsRecordEdit(deps, domain.RecordOpAdd),
		},
		{
			Name:        "dns_record_update",
			Description: "Replace a record set through a zone changelist and activate the change.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":           stringProp("Zone name"),
				"name":           stringProp("Fully qualified record name"),
				"type":           stringProp("Record type, e.g. A, CNAME, TXT"),
				"ttl":            intProp("Record TTL in seconds"),
				"rdata":          stringListProp("Record data values"),
				"timeoutSeconds": intProp("Overrides the activation poll timeout"),
			}, "zone", "name", "type", "ttl", "rdata"),
			Handler: dnsRecordEdit(deps, domain.RecordOpUpdate),
		},
		{
			Name:        "dns_record_delete",
			Description: "Delete a record set through a zone changelist and activate the change.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":           stringProp("Zone name"),
				"name":           stringProp("Fully qualified record name"),
				"type":           stringProp("Record type, e.g. A, CNAME, TXT"),
				"timeoutSeconds": intProp("Overrides the activation poll timeout"),
			}, "zone", "name", "type"),
			Handler: dnsRecordEdit(deps, domain.RecordOpDelete),
		},
		{
			Name:        "dns_records_batch_update",
			Description: "Apply several record edits atomically through one zone changelist.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":           stringProp("Zone name"),
				"edits":          recordEditListProp(),
				"timeoutSeconds": intProp("Overrides the activation poll timeout"),
			}, "zone", "edits"),
			Handler: dnsRecordsBatchUpdate(deps),
		},
		{
			Name:        "dns_activation_status",
			Description: "Report the upstream state of a zone activation.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":         stringProp("Zone name"),
				"activationId": stringProp("Activation to inspect"),
			}, "zone", "activationId"),
			Handler: dnsActivationStatus(deps),
		},
		{
			Name:        "dns_activations_recent",
			Description: "List recent terminal changelist outcomes from the activation journal.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"zone":  stringProp("Restrict to one zone"),
				"limit": intProp("Maximum records to return (default 20)"),
			}),
			Handler: dnsActivationsRecent(deps),
		},
	}
}

func recordEditListProp() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "Record edits applied in order",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"op":    stringProp("ADD, UPDATE, or DELETE"),
				"name":  stringProp("Fully qualified record name"),
				"type":  stringProp("Record type, e.g. A, CNAME, TXT"),
				"ttl":   intProp("Record TTL in seconds"),
				"rdata": stringListProp("Record data values"),
			},
			Required: []string{"op", "name", "type"},
		},
	}
}

func dnsZonesList(deps Deps) domain.Handler {
	type args struct {
		Search string `json:"search"`
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
		var resp zoneListResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: dnsService,
			Method:  http.MethodGet,
			Path:    dnsBasePath + "/zones",
			Query:   query,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Zones, nil
	}
}

func dnsZoneGet(deps Deps) domain.Handler {
	type args struct {
		Zone string `json:"zone"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var zone Zone
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: dnsService,
			Method:  http.MethodGet,
			Path:    dnsBasePath + "/zones/" + url.PathEscape(in.Zone),
		}, &zone); err != nil {
			return nil, err
		}
		return zone, nil
	}
}

func dnsZoneCreate(deps Deps) domain.Handler {
	type args struct {
		Zone         string `json:"zone"`
		ContractID   string `json:"contractId"`
		GroupID      string `json:"groupId"`
		Type         string `json:"type"`
		Comment      string `json:"comment"`
		SignAndServe bool   `json:"signAndServe"`
	}
	type body struct {
		Zone         string `json:"zone"`
		Type         string `json:"type"`
		Comment      string `json:"comment,omitempty"`
		SignAndServe bool   `json:"signAndServe,omitempty"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		zoneType := strings.ToUpper(in.Type)
		if zoneType == "" {
			zoneType = "PRIMARY"
		}
		switch zoneType {
		case "PRIMARY", "SECONDARY", "ALIAS":
		default:
			return nil, domain.E(domain.CodeInvalidArgument, "tools.dns_zone_create",
				fmt.Sprintf("unknown zone type %q", in.Type), nil)
		}
		query := url.Values{"contractId": []string{in.ContractID}}
		if in.GroupID != "" {
			query.Set("gid", in.GroupID)
		}
		var zone Zone
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: dnsService,
			Method:  http.MethodPost,
			Path:    dnsBasePath + "/zones",
			Query:   query,
			Body: body{
				Zone:         in.Zone,
				Type:         zoneType,
				Comment:      in.Comment,
				SignAndServe: in.SignAndServe,
			},
		}, &zone); err != nil {
			return nil, err
		}
		return zone, nil
	}
}

func dnsRecordSetsList(deps Deps) domain.Handler {
	type args struct {
		Zone   string `json:"zone"`
		Search string `json:"search"`
		Types  string `json:"types"`
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
		if in.Types != "" {
			query.Set("types", in.Types)
		}
		var resp recordSetsResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: dnsService,
			Method:  http.MethodGet,
			Path:    dnsBasePath + "/zones/" + url.PathEscape(in.Zone) + "/recordsets",
			Query:   query,
		}, &resp); err != nil {
			return nil, err
		}
		return resp.RecordSets, nil
	}
}

// dnsRecordEdit builds the single-edit handler shared by record add,
// update, and delete. All three run the full changelist cycle.
func dnsRecordEdit(deps Deps, op domain.RecordOp) domain.Handler {
	type args struct {
		Zone           string   `json:"zone"`
		Name           string   `json:"name"`
		Type           string   `json:"type"`
		TTL            int      `json:"ttl"`
		Rdata          []string `json:"rdata"`
		TimeoutSeconds int      `json:"timeoutSeconds"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		edit := domain.RecordEdit{
			Op:    op,
			Name:  in.Name,
			Type:  strings.ToUpper(in.Type),
			TTL:   in.TTL,
			Rdata: in.Rdata,
		}
		return applyChange(ctx, deps, req.Customer, in.Zone, []domain.RecordEdit{edit}, in.TimeoutSeconds)
	}
}

func dnsRecordsBatchUpdate(deps Deps) domain.Handler {
	type args struct {
		Zone           string              `json:"zone"`
		Edits          []domain.RecordEdit `json:"edits"`
		TimeoutSeconds int                 `json:"timeoutSeconds"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		edits := make([]domain.RecordEdit, len(in.Edits))
		for i, edit := range in.Edits {
			edit.Op = domain.RecordOp(strings.ToUpper(string(edit.Op)))
			edit.Type = strings.ToUpper(edit.Type)
			edits[i] = edit
		}
		return applyChange(ctx, deps, req.Customer, in.Zone, edits, in.TimeoutSeconds)
	}
}

func applyChange(ctx context.Context, deps Deps, customer domain.CustomerContext, zone string, edits []domain.RecordEdit, timeoutSeconds int) (any, error) {
	var opts changelist.ApplyOptions
	if timeoutSeconds > 0 {
		opts.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	result, err := deps.Engine.Apply(ctx, customer, zone, edits, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func dnsActivationStatus(deps Deps) domain.Handler {
	type args struct {
		Zone         string `json:"zone"`
		ActivationID string `json:"activationId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		status, err := deps.Engine.ActivationStatus(ctx, req.Customer, in.Zone, in.ActivationID)
		if err != nil {
			return nil, err
		}
		return status, nil
	}
}

func dnsActivationsRecent(deps Deps) domain.Handler {
	type args struct {
		Zone  string `json:"zone"`
		Limit int    `json:"limit"`
	}
	return func(_ context.Context, req domain.HandlerRequest) (any, error) {
		if deps.Journal == nil {
			return nil, domain.E(domain.CodeFailedPrecond, "tools.dns_activations_recent",
				"activation journal is disabled", nil)
		}
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		limit := in.Limit
		if limit <= 0 {
			limit = 20
		}
		recs, err := deps.Journal.RecentActivations(in.Zone, limit)
		if err != nil {
			return nil, domain.E(domain.CodeInternal, "tools.dns_activations_recent", "read journal", err)
		}
		return recs, nil
	}
}
