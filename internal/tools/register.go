// Package tools assembles the server's tool catalogue: names, input
// schemas, cache options, and handlers for every edge platform API
// family the server exposes.
package tools

import (
	"encoding/json"
	"time"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/changelist"
	"edgemcp/internal/infra/edgegrid"
)

// Cache windows per tool family. Mutations and status polls are never
// cached.
const (
	listCacheTTL   = 30 * time.Second
	rulesCacheTTL  = time.Minute
	reportCacheTTL = 5 * time.Minute
)

// Deps carries the shared infrastructure handlers close over. Journal
// may be nil when the activation journal is disabled.
type Deps struct {
	Client         *edgegrid.Client
	Engine         *changelist.Engine
	Journal        domain.ActivationJournal
	Resolver       domain.CredentialResolver
	DefaultSection string
}

// Register populates reg with the full catalogue. The caller freezes
// the registry afterwards.
func Register(reg *domain.Registry, deps Deps) error {
	for _, def := range Definitions(deps) {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Definitions returns every tool definition, grouped by API family.
func Definitions(deps Deps) []domain.ToolDefinition {
	var defs []domain.ToolDefinition
	defs = append(defs, dnsTools(deps)...)
	defs = append(defs, propertyTools(deps)...)
	defs = append(defs, purgeTools(deps)...)
	defs = append(defs, certTools(deps)...)
	defs = append(defs, netlistTools(deps)...)
	defs = append(defs, reportTools(deps)...)
	defs = append(defs, metaTools(deps)...)
	return defs
}

// decodeArgs unmarshals schema-validated arguments into the handler's
// typed view of them.
func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var args T
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, domain.E(domain.CodeInvalidArgument, "tools.decode", "decode arguments", err)
	}
	return args, nil
}
