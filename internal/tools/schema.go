package tools

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// inputSchema builds a closed object schema for a tool's arguments.
// The reserved customer and format arguments are always accepted.
func inputSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	all := make(map[string]*jsonschema.Schema, len(props)+2)
	for name, prop := range props {
		all[name] = prop
	}
	all["customer"] = stringProp("Credential section to act as; defaults to the configured section")
	all["format"] = stringProp("Response format: text, json, or markdown")
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           all,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func intProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func boolProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func stringListProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

func intListProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "integer"},
	}
}
