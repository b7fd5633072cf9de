package probes

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic fingerprint
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-netclient/internal/domain"
	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
)

// KindInvalidProbe marks outcomes for probes that could not be turned into a request.
const KindInvalidProbe = "invalid_probe"

// maxHTMLBodyBytes caps how much of a page the html runner parses.
const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// Runner executes a probe through a client and classifies the result.
type Runner interface {
	Format() string
	Run(ctx context.Context, client *netclient.Client, p Probe) domain.Outcome
}

// RunnerRegistry resolves the runner for a probe.
type RunnerRegistry interface {
	RunnerFor(p Probe) (Runner, error)
}

type runnerRegistry struct {
	mu       sync.RWMutex
	byFormat map[string]Runner
}

// NewRunnerRegistry builds a registry keyed by each runner's format.
func NewRunnerRegistry(runners ...Runner) RunnerRegistry {
	reg := &runnerRegistry{byFormat: make(map[string]Runner, len(runners))}
	for _, r := range runners {
		if r == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(r.Format()))
		if key == "" {
			continue
		}
		reg.byFormat[key] = r
	}
	return reg
}

// DefaultRunnerRegistry wires up the json, html and raw runners.
func DefaultRunnerRegistry() RunnerRegistry {
	return NewRunnerRegistry(JSONRunner{}, HTMLRunner{}, RawRunner{})
}

// RunnerFor selects the runner matching the probe's response format.
func (r *runnerRegistry) RunnerFor(p Probe) (Runner, error) {
	if r == nil {
		return nil, fmt.Errorf("runner registry is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("probe id is empty")
	}

	format := strings.ToLower(strings.TrimSpace(p.ResponseFormat))
	if format == "" {
		format = FormatJSON
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if runner, ok := r.byFormat[format]; ok {
		return runner, nil
	}
	return nil, fmt.Errorf("no runner registered for probe %q (format %q)", p.ID, format)
}

// JSONRunner decodes bodies as arbitrary JSON and summarizes them.
type JSONRunner struct{}

func (JSONRunner) Format() string { return FormatJSON }

func (JSONRunner) Run(ctx context.Context, client *netclient.Client, p Probe) domain.Outcome {
	started := time.Now()
	ep, err := buildEndpoint[any, any](p)
	if err != nil {
		return invalidProbe(p, started, err)
	}

	dec := netclient.JSONDecoder{Keys: p.Keys()}
	resp, err := netclient.Perform[any, any](ctx, client.WithDecoder(dec).WithErrorDecoder(dec), ep)

	out := newOutcome(p, displayURL(ep, p), started)
	if err != nil {
		fail(&out, err)
		if payload, ok := netclient.ServerPayload[any](err); ok {
			out.Summary = summarizeJSON(payload, p.SummaryFields)
		}
		return out
	}
	succeed(&out, resp.StatusCode)
	out.Summary = summarizeJSON(resp.Payload, p.SummaryFields)
	return out
}

// HTMLRunner extracts page metadata from HTML bodies.
type HTMLRunner struct {
	// MaxBytes overrides the parse limit when positive.
	MaxBytes int
}

func (HTMLRunner) Format() string { return FormatHTML }

func (h HTMLRunner) Run(ctx context.Context, client *netclient.Client, p Probe) domain.Outcome {
	started := time.Now()
	ep, err := buildEndpoint[PageMeta, any](p)
	if err != nil {
		return invalidProbe(p, started, err)
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = maxHTMLBodyBytes
	}
	c := client.
		WithDecoder(netclient.HTMLDecoder{MaxBytes: limit}).
		WithErrorDecoder(netclient.JSONDecoder{Keys: p.Keys()})
	resp, err := netclient.Perform[PageMeta, any](ctx, c, ep)

	out := newOutcome(p, displayURL(ep, p), started)
	if err != nil {
		fail(&out, err)
		return out
	}
	succeed(&out, resp.StatusCode)
	out.Summary = resp.Payload.Summary()
	return out
}

// RawRunner records status and a body fingerprint without decoding.
type RawRunner struct{}

func (RawRunner) Format() string { return FormatRaw }

func (RawRunner) Run(ctx context.Context, client *netclient.Client, p Probe) domain.Outcome {
	started := time.Now()
	ep, err := buildEndpoint[netclient.Empty, netclient.Empty](p)
	if err != nil {
		return invalidProbe(p, started, err)
	}

	resp, err := client.PerformRaw(ctx, ep)

	out := newOutcome(p, displayURL(ep, p), started)
	if err != nil {
		fail(&out, err)
		return out
	}

	out.StatusCode = resp.StatusCode
	if resp.IsSuccess() {
		out.Kind = domain.KindSuccess
	} else {
		out.Kind = netclient.KindHTTP.String()
	}
	sum := sha1.Sum(resp.Body)
	out.Summary = map[string]string{
		"body_sha1":    hex.EncodeToString(sum[:]),
		"content_type": resp.HeaderValue("Content-Type"),
	}
	return out
}

func newOutcome(p Probe, u string, started time.Time) domain.Outcome {
	return domain.Outcome{
		ProbeID:   p.ID,
		Method:    p.Method,
		URL:       u,
		ElapsedMs: time.Since(started).Milliseconds(),
	}
}

func invalidProbe(p Probe, started time.Time, err error) domain.Outcome {
	out := newOutcome(p, p.BaseURL+p.Path, started)
	out.Kind = KindInvalidProbe
	out.Error = err.Error()
	return out
}

func succeed(out *domain.Outcome, status int) {
	out.StatusCode = status
	out.Kind = domain.KindSuccess
}

// fail classifies err by its netclient kind and copies the status code when
// the failure carried one.
func fail(out *domain.Outcome, err error) {
	out.Kind = netclient.KindOf(err).String()
	out.Error = err.Error()

	var nerr *netclient.Error
	if errors.As(err, &nerr) {
		out.StatusCode = nerr.StatusCode
	}
}

// summarizeJSON records the shape of a decoded JSON value plus any requested
// top-level fields.
func summarizeJSON(v any, fields []string) map[string]string {
	summary := make(map[string]string)
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		summary["keys"] = strings.Join(keys, ",")
		for _, f := range fields {
			if fv, ok := val[f]; ok {
				summary[f] = fmt.Sprint(fv)
			}
		}
	case []any:
		summary["items"] = strconv.Itoa(len(val))
	case nil:
		summary["value"] = "null"
	default:
		summary["value"] = fmt.Sprint(val)
	}
	return summary
}
