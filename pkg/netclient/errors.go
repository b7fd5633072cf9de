package netclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Kind tags every error the engine can return.
type Kind int

const (
	KindInvalidURL Kind = iota + 1
	KindRequestFailed
	KindInvalidResponse
	KindDecoding
	KindHTTP
	KindServer
)

// Sentinels for errors.Is matching by kind.
var (
	ErrInvalidURL      = errors.New("invalid URL")
	ErrRequestFailed   = errors.New("request failed")
	ErrInvalidResponse = errors.New("invalid response")
	ErrDecoding        = errors.New("decoding failed")
	ErrHTTP            = errors.New("http error")
	ErrServer          = errors.New("server error")
)

const maxBodySnippet = 512

// String returns a stable snake_case name for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindRequestFailed:
		return "request_failed"
	case KindInvalidResponse:
		return "invalid_response"
	case KindDecoding:
		return "decoding_error"
	case KindHTTP:
		return "http_error"
	case KindServer:
		return "server_error"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindRequestFailed:
		return ErrRequestFailed
	case KindInvalidResponse:
		return ErrInvalidResponse
	case KindDecoding:
		return ErrDecoding
	case KindHTTP:
		return ErrHTTP
	case KindServer:
		return ErrServer
	default:
		return nil
	}
}

// Error is the only error type Perform and PerformRaw return.
//
// Which fields are populated depends on Kind:
//   - KindInvalidURL: Err holds the resolution failure.
//   - KindRequestFailed: Err holds the transport fault or context error.
//   - KindInvalidResponse: nothing beyond the kind.
//   - KindDecoding: Err holds the decode failure; StatusCode, Header and Body describe the response.
//   - KindHTTP: StatusCode, Header and Body; Err holds the error-payload decode failure.
//   - KindServer: Payload holds the decoded error payload; StatusCode, Header and Body as received.
type Error struct {
	Kind       Kind
	StatusCode int
	Header     http.Header
	Body       []byte
	Payload    any
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindInvalidURL:
		return withCause("invalid URL provided", e.Err)
	case KindRequestFailed:
		return withCause("network request failed", e.Err)
	case KindInvalidResponse:
		return "invalid response received from the server"
	case KindDecoding:
		return withCause("failed to decode response", e.Err)
	case KindHTTP:
		return fmt.Sprintf("http error, status code: %d, body: %s", e.StatusCode, bodySnippet(e.Body))
	case KindServer:
		return fmt.Sprintf("server error, status code: %d, payload: %+v", e.StatusCode, e.Payload)
	default:
		return withCause("unknown network error", e.Err)
	}
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a netclient error, or 0 when err is not one.
func KindOf(err error) Kind {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return 0
}

// ServerPayload extracts the decoded error payload from a KindServer error.
func ServerPayload[E any](err error) (E, bool) {
	var zero E
	var ne *Error
	if !errors.As(err, &ne) || ne.Kind != KindServer {
		return zero, false
	}
	p, ok := ne.Payload.(E)
	if !ok {
		return zero, false
	}
	return p, true
}

func invalidURL(cause error) *Error { return &Error{Kind: KindInvalidURL, Err: cause} }

// requestFailed keeps an existing taxonomy error as-is.
func requestFailed(cause error) *Error {
	var ne *Error
	if errors.As(cause, &ne) {
		return ne
	}
	return &Error{Kind: KindRequestFailed, Err: cause}
}

func withCause(msg string, cause error) string {
	if cause == nil {
		return msg
	}
	return msg + ": " + cause.Error()
}

func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxBodySnippet {
		cut := maxBodySnippet
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
