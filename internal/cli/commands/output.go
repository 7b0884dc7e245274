package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
	"github.com/leapstack-labs/leapconf/pkg/core"
)

// titleCaser title-cases kind names in headers.
var titleCaser = cases.Title(language.English)

// kindTitle returns a display name such as "Semantic Model".
func kindTitle(kind core.ResourceKind) string {
	b := []byte(kind)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return titleCaser.String(string(b))
}

// writeStructured writes v as YAML or JSON.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported structured output %q", format)
}

// writeKeyValues writes m as a two-column table sorted by key.
func writeKeyValues(w io.Writer, title string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, formatValue(m[k])})
	}
	t.Render()
}

// formatValue renders scalars as-is and composite values as compact JSON.
func formatValue(v any) string {
	switch v.(type) {
	case nil:
		return "~"
	case map[string]any, []any, []string, map[string][]string:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
