package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/edgegrid"
)

const (
	ccuService  = "ccu"
	ccuBasePath = "/ccu/v3"
)

// PurgeReceipt acknowledges an accepted purge request.
type PurgeReceipt struct {
	PurgeID          string `json:"purgeId"`
	EstimatedSeconds int    `json:"estimatedSeconds,omitempty"`
	SupportID        string `json:"supportId,omitempty"`
	Detail           string `json:"detail,omitempty"`
}

// PurgeStatus is the upstream state of one purge request.
type PurgeStatus struct {
	PurgeID        string `json:"purgeId"`
	Status         string `json:"status"`
	SubmittedBy    string `json:"submittedBy,omitempty"`
	SubmissionTime string `json:"submissionTime,omitempty"`
	CompletionTime string `json:"completionTime,omitempty"`
}

func purgeTools(deps Deps) []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "purge_url",
			Description: "Purge cached content by URL on the staging or production network.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"urls":    stringListProp("Fully qualified URLs to purge"),
				"network": stringProp("staging or production (default production)"),
				"action":  stringProp("invalidate or delete (default invalidate)"),
			}, "urls"),
			Handler: purgeURL(deps),
		},
		{
			Name:        "purge_cpcode",
			Description: "Purge all cached content under one or more CP codes.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"cpcodes": intListProp("CP codes to purge"),
				"network": stringProp("staging or production (default production)"),
				"action":  stringProp("invalidate or delete (default invalidate)"),
			}, "cpcodes"),
			Handler: purgeCPCode(deps),
		},
		{
			Name:        "purge_tag",
			Description: "Purge cached content by cache tag.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"tags":    stringListProp("Cache tags to purge"),
				"network": stringProp("staging or production (default production)"),
				"action":  stringProp("invalidate or delete (default invalidate)"),
			}, "tags"),
			Handler: purgeTag(deps),
		},
		{
			Name:        "purge_status",
			Description: "Report the state of a submitted purge request.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"purgeId": stringProp("Purge request to inspect"),
			}, "purgeId"),
			Handler: purgeStatusTool(deps),
		},
	}
}

func purgeURL(deps Deps) domain.Handler {
	type args struct {
		URLs    []string `json:"urls"`
		Network string   `json:"network"`
		Action  string   `json:"action"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		if len(in.URLs) == 0 {
			return nil, domain.E(domain.CodeInvalidArgument, "tools.purge_url", "urls is empty", nil)
		}
		return submitPurge(ctx, deps, req.Customer, "tools.purge_url", in.Action, "url", in.Network, in.URLs)
	}
}

func purgeCPCode(deps Deps) domain.Handler {
	type args struct {
		CPCodes []int  `json:"cpcodes"`
		Network string `json:"network"`
		Action  string `json:"action"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		if len(in.CPCodes) == 0 {
			return nil, domain.E(domain.CodeInvalidArgument, "tools.purge_cpcode", "cpcodes is empty", nil)
		}
		return submitPurge(ctx, deps, req.Customer, "tools.purge_cpcode", in.Action, "cpcode", in.Network, in.CPCodes)
	}
}

func purgeTag(deps Deps) domain.Handler {
	type args struct {
		Tags    []string `json:"tags"`
		Network string   `json:"network"`
		Action  string   `json:"action"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		if len(in.Tags) == 0 {
			return nil, domain.E(domain.CodeInvalidArgument, "tools.purge_tag", "tags is empty", nil)
		}
		return submitPurge(ctx, deps, req.Customer, "tools.purge_tag", in.Action, "tag", in.Network, in.Tags)
	}
}

func purgeStatusTool(deps Deps) domain.Handler {
	type args struct {
		PurgeID string `json:"purgeId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var status PurgeStatus
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: ccuService,
			Method:  http.MethodGet,
			Path:    ccuBasePath + "/purges/" + url.PathEscape(in.PurgeID),
		}, &status); err != nil {
			return nil, err
		}
		return status, nil
	}
}

func submitPurge(ctx context.Context, deps Deps, customer domain.CustomerContext, op, action, objectType, network string, objects any) (any, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		action = "invalidate"
	}
	if action != "invalidate" && action != "delete" {
		return nil, domain.E(domain.CodeInvalidArgument, op,
			fmt.Sprintf("action must be invalidate or delete, got %q", action), nil)
	}
	network = strings.ToLower(strings.TrimSpace(network))
	if network == "" {
		network = "production"
	}
	if network != "staging" && network != "production" {
		return nil, domain.E(domain.CodeInvalidArgument, op,
			fmt.Sprintf("network must be staging or production, got %q", network), nil)
	}

	body := struct {
		Objects any `json:"objects"`
	}{Objects: objects}

	var receipt PurgeReceipt
	if err := deps.Client.Do(ctx, customer, edgegrid.Request{
		Service: ccuService,
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("%s/%s/%s/%s", ccuBasePath, action, objectType, network),
		Body:    body,
	}, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}
