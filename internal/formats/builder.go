// Package formats builds the output format list sent with every scrape
// request, including the optional schema-guided extraction format.
package formats

import (
	"strings"

	"github.com/sells-group/social-cli/pkg/firecrawl"
)

// DefaultFormats are requested when no override list is given.
var DefaultFormats = []string{"markdown", "links"}

// Options selects the formats for a batch.
type Options struct {
	// Formats is a comma-separated override of DefaultFormats.
	Formats string
	// IncludeJSON appends one structured extraction format.
	IncludeJSON bool
	// SchemaPath points at a JSON or YAML schema; empty means DefaultSchema.
	SchemaPath string
}

// Build returns the format list for opts. The schema is only loaded when
// IncludeJSON is set.
func Build(opts Options) ([]firecrawl.Format, error) {
	names := ParseList(opts.Formats)
	if opts.Formats == "" {
		names = append([]string(nil), DefaultFormats...)
	}

	out := make([]firecrawl.Format, 0, len(names)+1)
	for _, n := range names {
		out = append(out, firecrawl.TextFormat(n))
	}

	if opts.IncludeJSON {
		schema, err := LoadSchema(opts.SchemaPath)
		if err != nil {
			return nil, err
		}
		out = append(out, firecrawl.JSONFormat(schema))
	}
	return out, nil
}

// ParseList splits a comma-separated list, trimming items and dropping empty
// ones.
func ParseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ResolveOnlyMainContent applies the content-mode flags: full content always
// wins over the main-content-only preference.
func ResolveOnlyMainContent(onlyMainContent, fullContent bool) bool {
	if fullContent {
		return false
	}
	return onlyMainContent
}
