package netclient

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Method is an HTTP request method.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

func (m Method) String() string { return string(m) }

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodHead, MethodOptions:
		return true
	}
	return false
}

// ParseMethod normalizes s into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unsupported http method %q", s)
	}
	return m, nil
}

// Request describes a single HTTP call. Implementations must be pure:
// ResolveURL is the only method allowed to fail and it must never do I/O.
type Request interface {
	ResolveURL() (*url.URL, error)
	Method() Method
	Headers() map[string]string
	Body() []byte
}

// Descriptor is a Request that also declares the success payload type S and
// the server error payload type E.
type Descriptor[S, E any] interface {
	Request
	expects(S, E)
}

// Expects declares the payload types of a Descriptor. Embed it in a request type:
//
//	type getUser struct {
//		netclient.Expects[User, APIError]
//		id int
//	}
type Expects[S, E any] struct{}

func (Expects[S, E]) expects(S, E) {}

// Endpoint is a ready-made Descriptor built from URL components.
type Endpoint[S, E any] struct {
	Expects[S, E]

	// BaseURL, when set, supplies scheme, host and a path prefix.
	BaseURL string
	Scheme  string
	Host    string
	Path    string
	Query   url.Values
	Verb    Method
	Header  map[string]string
	Payload []byte
}

// NewJSONEndpoint returns an endpoint whose body is v encoded with enc.
func NewJSONEndpoint[S, E any](verb Method, baseURL, p string, v any, enc JSONEncoder) (*Endpoint[S, E], error) {
	body, err := enc.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return &Endpoint[S, E]{
		BaseURL: baseURL,
		Path:    p,
		Verb:    verb,
		Header:  map[string]string{"Content-Type": "application/json"},
		Payload: body,
	}, nil
}

// ResolveURL builds the target URL from the endpoint fields.
func (e *Endpoint[S, E]) ResolveURL() (*url.URL, error) {
	if e == nil {
		return nil, errors.New("endpoint is nil")
	}
	var u url.URL
	query := url.Values{}

	if base := strings.TrimSpace(e.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		u.Scheme = parsed.Scheme
		u.Host = parsed.Host
		u.Path = joinPath(parsed.Path, e.Path)
		for k, vs := range parsed.Query() {
			query[k] = append(query[k], vs...)
		}
	} else {
		u.Scheme = strings.TrimSpace(e.Scheme)
		if u.Scheme == "" {
			u.Scheme = "https"
		}
		u.Host = strings.TrimSpace(e.Host)
		u.Path = joinPath("", e.Path)
	}

	if err := validateURL(&u); err != nil {
		return nil, err
	}

	for k, vs := range e.Query {
		query[k] = append(query[k], vs...)
	}
	u.RawQuery = query.Encode()
	return &u, nil
}

// Method returns Verb, defaulting to GET.
func (e *Endpoint[S, E]) Method() Method {
	if e.Verb == "" {
		return MethodGet
	}
	return e.Verb
}

func (e *Endpoint[S, E]) Headers() map[string]string { return e.Header }

func (e *Endpoint[S, E]) Body() []byte { return e.Payload }

func validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q (only http and https are allowed)", u.Scheme)
	}
	u.Scheme = scheme
	if u.Host == "" {
		return errors.New("URL must have a host")
	}
	if strings.ContainsAny(u.Host, " \t\r\n/?#") {
		return fmt.Errorf("invalid host %q", u.Host)
	}
	if _, err := url.Parse(u.String()); err != nil {
		return err
	}
	return nil
}

func joinPath(prefix, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return prefix
	}
	joined := path.Join("/", prefix, p)
	if strings.HasSuffix(p, "/") && joined != "/" {
		joined += "/"
	}
	return joined
}
