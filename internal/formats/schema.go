package formats

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/social-cli/internal/config"
)

// stringListFields are the default schema properties typed as arrays of
// strings. "cadence" is the only scalar field.
var stringListFields = []string{
	"topics",
	"content_pillars",
	"hooks",
	"offers",
	"calls_to_action",
	"proof_types",
	"tools_mentioned",
	"audience",
	"research_mentions",
	"post_types",
	"quotes",
}

// DefaultSchema returns the built-in competitor content schema. Every call
// returns a fresh copy. No field is required.
func DefaultSchema() map[string]any {
	props := make(map[string]any, len(stringListFields)+1)
	for _, name := range stringListFields {
		props[name] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	}
	props["cadence"] = map[string]any{"type": "string"}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []any{},
	}
}

// LoadSchema resolves the structured extraction schema. An empty path yields
// DefaultSchema; otherwise the file is parsed as YAML (.yaml, .yml) or JSON.
// The document must be a mapping; its contents are otherwise passed to
// Firecrawl untouched.
func LoadSchema(path string) (map[string]any, error) {
	if path == "" {
		return DefaultSchema(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, config.Wrap(err, "read schema "+path)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	default:
		doc, err = decodeJSON(data)
	}
	if err != nil {
		return nil, config.Wrap(err, "parse schema "+path)
	}

	schema, ok := doc.(map[string]any)
	if !ok {
		return nil, config.Errorf("parse schema %s: top-level value must be an object", path)
	}
	return schema, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "formats: decode json")
	}
	if dec.More() {
		return nil, eris.New("formats: trailing data after json document")
	}
	return doc, nil
}

func decodeYAML(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "formats: decode yaml")
	}
	return normalizeYAML(doc)
}

// normalizeYAML converts the map[any]any nodes yaml can produce for
// non-string keys into map[string]any so the schema encodes as JSON.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, eris.Errorf("formats: non-string key %v in yaml schema", k)
			}
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		for i, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}
