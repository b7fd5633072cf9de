package netclient

import (
	"context"
	"net/http"
	"net/url"
)

// TransportRequest is the fully resolved request handed to a Transport.
type TransportRequest struct {
	Method Method
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// TransportResponse is the buffered result of a single HTTP exchange.
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs the actual network I/O. Implementations must honor ctx
// and support concurrent calls.
type Transport interface {
	Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

func (f TransportFunc) Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	return f(ctx, req)
}

// Metadata is the status code and headers returned with a payload.
type Metadata struct {
	StatusCode int
	Header     http.Header
}

// IsSuccess reports whether the status code is in 200..299.
func (m Metadata) IsSuccess() bool { return isSuccess(m.StatusCode) }

// HeaderValue returns the first value for key.
func (m Metadata) HeaderValue(key string) string {
	if m.Header == nil {
		return ""
	}
	return m.Header.Get(key)
}

// RawResponse is the undecoded result of PerformRaw.
type RawResponse struct {
	Metadata
	Body []byte
}

// Response is the decoded result of Perform.
type Response[S any] struct {
	Metadata
	Payload S
}

func isSuccess(code int) bool { return code >= 200 && code <= 299 }
