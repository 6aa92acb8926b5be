package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// expander substitutes ${VAR} references in the scalar values of a
// parsed YAML document, collecting the names of unset variables.
type expander struct {
	unset map[string]struct{}
}

// expandEnv rewrites ${VAR} references in raw before decoding.
// Expansion works on the node tree so types survive it: `port: ${PORT}`
// decodes as an int while a quoted "${PORT}" stays a string. Unset
// variables become "" and their names come back for the caller to log.
func expandEnv(raw []byte) ([]byte, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}

	x := &expander{unset: map[string]struct{}{}}
	x.walk(&root)

	out, err := yaml.Marshal(&root)
	if err != nil {
		return nil, nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return out, x.unsetNames(), nil
}

func (x *expander) walk(node *yaml.Node) {
	switch node.Kind {
	case yaml.ScalarNode:
		x.scalar(node)
	case yaml.MappingNode:
		// Values only; keys are never expanded.
		for i := 1; i < len(node.Content); i += 2 {
			x.walk(node.Content[i])
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			x.walk(node.Alias)
		}
	default:
		for _, child := range node.Content {
			x.walk(child)
		}
	}
}

func (x *expander) scalar(node *yaml.Node) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	expanded := os.Expand(node.Value, x.lookup)
	if expanded == node.Value {
		return
	}

	if node.Style != 0 {
		// Quoted scalars keep their string type.
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	node.Tag, node.Value = retypeScalar(expanded)
}

func (x *expander) lookup(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	x.unset[key] = struct{}{}
	return ""
}

func (x *expander) unsetNames() []string {
	if len(x.unset) == 0 {
		return nil
	}
	names := make([]string, 0, len(x.unset))
	for name := range x.unset {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// retypeScalar lets the YAML parser resolve what an expanded plain
// scalar now is, so numbers and booleans decode as such.
func retypeScalar(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}

	var probe yaml.Node
	if err := yaml.Unmarshal([]byte(value), &probe); err != nil || len(probe.Content) == 0 {
		return "!!str", value
	}
	resolved := probe.Content[0]
	if resolved.Kind != yaml.ScalarNode {
		return "!!str", value
	}

	switch resolved.Tag {
	case "!!null", "!!bool", "!!int", "!!float":
		return resolved.Tag, resolved.Value
	default:
		return "!!str", value
	}
}
