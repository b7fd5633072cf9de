// Package configfile decodes the YAML/JSON registry files the prober reads.
package configfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type unmarshalFn func([]byte, any) error

var formats = []struct {
	name string
	ext  string
	fn   unmarshalFn
}{
	{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
	{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
	{name: "json", ext: ".json", fn: json.Unmarshal},
}

// Load reads path and decodes it into T, choosing the format by extension.
// what names the file in error messages ("probes", "publishers").
func Load[T any](path, what string) (T, error) {
	var zero T
	path = strings.TrimSpace(path)
	if path == "" {
		return zero, fmt.Errorf("%s file path is empty", what)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read %s file: %w", what, err)
	}
	return Parse[T](raw, filepath.Ext(path), what)
}

// Parse decodes data into T. An empty or unknown ext tries every format in turn.
func Parse[T any](data []byte, ext, what string) (T, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	known := false
	for _, f := range formats {
		if f.ext == ext {
			known = true
			break
		}
	}

	var errs []error
	for _, f := range formats {
		if known && f.ext != ext {
			continue
		}
		var out T
		if err := f.fn(data, &out); err != nil {
			errs = append(errs, fmt.Errorf("decode %s %s: %w", f.name, what, err))
			continue
		}
		return out, nil
	}

	var zero T
	return zero, fmt.Errorf("%s file format not recognized (expected YAML or JSON): %w", what, errors.Join(errs...))
}
