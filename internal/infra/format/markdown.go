package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderMarkdown renders slices of objects as tables and objects as
// definition lists. Shapes that fit neither degrade to plain text.
func renderMarkdown(decoded any) string {
	switch value := decoded.(type) {
	case map[string]any:
		lines := make([]string, 0, len(value))
		for _, key := range sortedKeys(value) {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", key, scalarText(value[key])))
		}
		return strings.Join(lines, "\n")
	case []any:
		if rows, ok := objectRows(value); ok {
			return renderTable(rows)
		}
		lines := make([]string, 0, len(value))
		for _, item := range value {
			lines = append(lines, "- "+scalarText(item))
		}
		return strings.Join(lines, "\n")
	default:
		return renderText(decoded)
	}
}

func objectRows(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}

func renderTable(rows []map[string]any) string {
	columns := tableColumns(rows)

	writer := table.NewWriter()
	writer.Style().Format.Header = text.FormatDefault
	header := make(table.Row, 0, len(columns))
	for _, col := range columns {
		header = append(header, col)
	}
	writer.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, scalarText(row[col]))
		}
		writer.AppendRow(cells)
	}
	return writer.RenderMarkdown()
}

// tableColumns is the sorted union of keys across all rows, so ragged
// rows still line up.
func tableColumns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}
