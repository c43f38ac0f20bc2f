package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/fadilmartias/project-evaluator/internal/rubric"
)

func (o *options) print(w io.Writer, v any) error {
	if o.v.GetString("output") == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toYAMLValue(v)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// toYAMLValue routes v through JSON so YAML output uses the same field
// names as the API.
func toYAMLValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func (o *options) registry() (*rubric.Registry, error) {
	reg, err := rubric.Load(o.v.GetString("rubric_dir"))
	if err != nil {
		return nil, fmt.Errorf("load rubrics: %w", err)
	}
	return reg, nil
}
