// Package format renders tool results into protocol content blocks.
// Rendering is pure: inputs are never mutated, and the same value
// always renders the same way.
package format

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"edgemcp/internal/domain"
)

// Format selects how a tool result is rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Parse maps a user-supplied format name onto a known Format. Unknown
// or empty names fall back to JSON.
func Parse(name string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatText:
		return FormatText
	case FormatMarkdown:
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

// Render renders v into content blocks.
func Render(v any, f Format) ([]domain.ContentBlock, error) {
	decoded, err := normalize(v)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "format.render", "result is not serializable", err)
	}

	switch f {
	case FormatText:
		return []domain.ContentBlock{{Kind: domain.ContentKindText, Text: renderText(decoded)}}, nil
	case FormatMarkdown:
		return []domain.ContentBlock{{Kind: domain.ContentKindMarkdown, Text: renderMarkdown(decoded)}}, nil
	default:
		text, err := renderJSON(decoded)
		if err != nil {
			return nil, err
		}
		return []domain.ContentBlock{{Kind: domain.ContentKindJSON, Text: text}}, nil
	}
}

// normalize round-trips v through JSON so every renderer sees the same
// plain maps, slices, and scalars regardless of the handler's types.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func renderJSON(decoded any) (string, error) {
	raw, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return "", domain.E(domain.CodeInternal, "format.render", "encode result", err)
	}
	return string(raw), nil
}

func renderText(decoded any) string {
	switch value := decoded.(type) {
	case nil:
		return "(empty)"
	case string:
		return value
	case map[string]any:
		lines := make([]string, 0, len(value))
		for _, key := range sortedKeys(value) {
			lines = append(lines, fmt.Sprintf("%s: %s", key, scalarText(value[key])))
		}
		return strings.Join(lines, "\n")
	case []any:
		if len(value) == 0 {
			return "(empty)"
		}
		lines := make([]string, 0, len(value))
		for _, item := range value {
			lines = append(lines, scalarText(item))
		}
		return strings.Join(lines, "\n")
	default:
		return scalarText(value)
	}
}

// scalarText renders one value on one line. Composite values collapse
// to compact JSON.
func scalarText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return fmt.Sprintf("%t", value)
	case float64:
		return formatNumber(value)
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(raw)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
