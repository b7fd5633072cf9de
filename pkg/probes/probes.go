// Package probes contains probe definitions (YAML/JSON) and the runners that execute them.
package probes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-netclient/internal/configfile"
	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
)

// Supported response formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatRaw  = "raw"
)

const defaultTimeoutSeconds = 10

// Probe describes one endpoint to call and how to interpret its response.
type Probe struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Method         string            `json:"method" yaml:"method"`
	BaseURL        string            `json:"base_url" yaml:"base_url"`
	Path           string            `json:"path" yaml:"path"`
	Query          map[string]string `json:"query" yaml:"query"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Body           string            `json:"body" yaml:"body"`
	JSONBody       any               `json:"json_body" yaml:"json_body"`
	ResponseFormat string            `json:"response_format" yaml:"response_format"`
	KeyStrategy    string            `json:"key_strategy" yaml:"key_strategy"`
	SummaryFields  []string          `json:"summary_fields" yaml:"summary_fields"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type registryFile struct {
	Probes []Probe `json:"probes" yaml:"probes"`
}

// Registry holds the validated probes in file order. It is read-only after
// loading.
type Registry struct {
	probes []Probe
	idx    map[string]int
}

// LoadRegistry loads the probe registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	file, err := configfile.Load[registryFile](path, "probes")
	if err != nil {
		return nil, err
	}
	return newRegistry(file.Probes)
}

// ParseRegistry decodes and validates probe definitions. ext selects the
// format; an empty ext tries each supported format.
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	file, err := configfile.Parse[registryFile](data, ext, "probes")
	if err != nil {
		return nil, err
	}
	return newRegistry(file.Probes)
}

func newRegistry(defs []Probe) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("probes file contains no probes entries")
	}

	reg := &Registry{
		probes: make([]Probe, 0, len(defs)),
		idx:    make(map[string]int, len(defs)),
	}
	for i := range defs {
		p := sanitizeProbe(defs[i])
		if err := validateProbe(p); err != nil {
			return nil, fmt.Errorf("probe[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate probe id %q", p.ID)
		}
		reg.idx[p.ID] = len(reg.probes)
		reg.probes = append(reg.probes, p)
	}
	return reg, nil
}

func sanitizeProbe(p Probe) Probe {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	p.BaseURL = strings.TrimSpace(p.BaseURL)
	p.Path = strings.TrimSpace(p.Path)
	p.ResponseFormat = strings.ToLower(strings.TrimSpace(p.ResponseFormat))
	p.KeyStrategy = strings.ToLower(strings.TrimSpace(p.KeyStrategy))
	p.Headers = sanitizeMap(p.Headers)
	p.Query = sanitizeMap(p.Query)

	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Method == "" {
		p.Method = string(netclient.MethodGet)
	}
	if p.ResponseFormat == "" {
		p.ResponseFormat = FormatJSON
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultTimeoutSeconds
	}

	fields := p.SummaryFields[:0:0]
	for _, f := range p.SummaryFields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	p.SummaryFields = fields

	return p
}

// sanitizeMap trims keys and values and drops empty keys.
func sanitizeMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateProbe(p Probe) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required for probe %q", p.ID)
	}
	if _, err := netclient.ParseMethod(p.Method); err != nil {
		return fmt.Errorf("probe %q: %w", p.ID, err)
	}
	if _, err := netclient.ParseKeyStrategy(p.KeyStrategy); err != nil {
		return fmt.Errorf("probe %q: %w", p.ID, err)
	}
	switch p.ResponseFormat {
	case FormatJSON, FormatHTML, FormatRaw:
	default:
		return fmt.Errorf("response_format %q is not supported for probe %q", p.ResponseFormat, p.ID)
	}
	if p.Body != "" && p.JSONBody != nil {
		return fmt.Errorf("probe %q sets both body and json_body", p.ID)
	}
	return nil
}

// Timeout returns the per-probe deadline.
func (p Probe) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Keys returns the parsed key strategy, falling back to default keys.
func (p Probe) Keys() netclient.KeyStrategy {
	keys, err := netclient.ParseKeyStrategy(p.KeyStrategy)
	if err != nil {
		return netclient.UseDefaultKeys
	}
	return keys
}

// All returns all configured probes in file order.
func (r *Registry) All() []Probe {
	if r == nil {
		return nil
	}
	return append([]Probe(nil), r.probes...)
}

// ByID returns the probe with the given id.
func (r *Registry) ByID(id string) (Probe, bool) {
	if r == nil {
		return Probe{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return Probe{}, false
	}
	return r.probes[i], true
}
