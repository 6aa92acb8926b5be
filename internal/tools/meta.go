package tools

import (
	"context"

	"edgemcp/internal/domain"
)

// CustomerSection names one configured credential section.
type CustomerSection struct {
	Section string `json:"section"`
	Default bool   `json:"default,omitempty"`
}

func metaTools(deps Deps) []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "customer_list",
			Description: "List the configured customer credential sections.",
			InputSchema: inputSchema(nil),
			Handler:     customerList(deps),
		},
	}
}

func customerList(deps Deps) domain.Handler {
	return func(_ context.Context, _ domain.HandlerRequest) (any, error) {
		names := deps.Resolver.Sections()
		sections := make([]CustomerSection, 0, len(names))
		for _, name := range names {
			sections = append(sections, CustomerSection{
				Section: name,
				Default: name == deps.DefaultSection,
			})
		}
		return sections, nil
	}
}
