package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic fingerprint
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Domain contains core models shared by the prober packages.

// Outcome values for Kind besides the netclient error kinds.
const (
	KindSuccess = "success"
)

// Outcome is the classified result of executing one probe.
type Outcome struct {
	ProbeID    string            `json:"probe_id"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"status_code,omitempty"`
	Kind       string            `json:"kind"`
	Error      string            `json:"error,omitempty"`
	Summary    map[string]string `json:"summary,omitempty"`
	ElapsedMs  int64             `json:"elapsed_ms"`
}

// Healthy reports whether the probe completed with a success kind.
func (o Outcome) Healthy() bool { return o.Kind == KindSuccess }

// Signature fingerprints the parts of an outcome that matter for change
// detection. Elapsed time and error text are excluded.
func (o Outcome) Signature() string {
	keys := make([]string, 0, len(o.Summary))
	for k := range o.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d|%s", o.ProbeID, o.Method, o.URL, o.StatusCode, o.Kind)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, o.Summary[k])
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
