package rubric

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var builtin embed.FS

// LoadDefault builds a registry from the built-in definitions.
func LoadDefault() (*Registry, error) {
	reg := NewRegistry()
	if err := loadFS(reg, builtin, "definitions"); err != nil {
		return nil, err
	}
	return reg, nil
}

// Load builds a registry from the built-in definitions, then adds (or
// replaces) definitions found as *.yaml / *.yml files in dir. An empty dir
// behaves like LoadDefault.
func Load(dir string) (*Registry, error) {
	reg, err := LoadDefault()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return reg, nil
	}
	if err := LoadDir(reg, dir); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadDir registers every rubric file in dir into reg.
func LoadDir(reg *Registry, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("rubric dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("rubric dir %s is not a directory", dir)
	}
	return loadFS(reg, os.DirFS(dir), ".")
}

func loadFS(reg *Registry, fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read rubric definitions: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("read rubric %s: %w", name, err)
		}
		def, err := Parse(data)
		if err != nil {
			return fmt.Errorf("parse rubric %s: %w", name, err)
		}
		if err := reg.Register(*def); err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				cfgErr.Source = name
			}
			return err
		}
	}
	return nil
}

// Parse decodes a single YAML rubric definition. Unknown fields are rejected
// so typos in rule keys fail loudly instead of silently scoring zero.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRubric)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}
	return &def, nil
}
