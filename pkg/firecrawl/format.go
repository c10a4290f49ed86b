package firecrawl

import "encoding/json"

// FormatJSON is the format type Firecrawl uses for schema-guided extraction.
const FormatJSON = "json"

// Format is one entry of ScrapeRequest.Formats. A plain format ("markdown",
// "links", "html", ...) is encoded as a bare string; a structured extraction
// format is encoded as {"type":"json","schema":{...}}.
type Format struct {
	Name   string
	Schema map[string]any
}

// TextFormat returns a plain output format.
func TextFormat(name string) Format {
	return Format{Name: name}
}

// JSONFormat returns a structured extraction format carrying schema.
func JSONFormat(schema map[string]any) Format {
	if schema == nil {
		schema = map[string]any{}
	}
	return Format{Name: FormatJSON, Schema: schema}
}

// Structured reports whether f requests schema-guided extraction.
func (f Format) Structured() bool {
	return f.Schema != nil
}

type structuredFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema"`
}

// MarshalJSON implements json.Marshaler.
func (f Format) MarshalJSON() ([]byte, error) {
	if f.Structured() {
		return json.Marshal(structuredFormat{Type: f.Name, Schema: f.Schema})
	}
	return json.Marshal(f.Name)
}

// FormatNames returns the names of the given formats, in order.
func FormatNames(formats []Format) []string {
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.Name)
	}
	return names
}
