package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
)

const (
	// DefaultTimeout bounds a single exchange when no timeout is given.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxRedirects is the redirect limit for new transports.
	DefaultMaxRedirects = 10
)

// RestyTransport adapts resty.Client to the netclient.Transport interface.
type RestyTransport struct {
	client *resty.Client
}

var _ netclient.Transport = (*RestyTransport)(nil)

// NewRestyTransport creates a new RestyTransport with the specified timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	return &RestyTransport{client: newRestyBaseClient(timeout)}
}

// NewRestyTransportWithClient wraps an existing http.Client, keeping its
// transport, TLS and timeout settings.
func NewRestyTransportWithClient(hc *http.Client) *RestyTransport {
	if hc == nil {
		return NewRestyTransport(DefaultTimeout)
	}
	c := resty.NewWithClient(hc)
	c.SetAllowGetMethodPayload(true)
	return &RestyTransport{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(DefaultMaxRedirects))
	// descriptor bodies are sent as given, whatever the verb
	c.SetAllowGetMethodPayload(true)
	return c
}

// Send performs the request described by req and buffers the response body.
func (r *RestyTransport) Send(ctx context.Context, req *netclient.TransportRequest) (*netclient.TransportResponse, error) {
	rr := r.client.R().SetContext(ctx)
	for k, vs := range req.Header {
		for _, v := range vs {
			rr.Header.Add(k, v)
		}
	}
	if len(req.Body) > 0 {
		rr.SetBody(req.Body)
	}

	resp, err := rr.Execute(req.Method.String(), req.URL.String())
	if err != nil {
		return nil, err
	}
	return toTransportResponse(resp), nil
}

// toTransportResponse returns nil when resty produced no HTTP response, which
// the engine reports as an invalid response.
func toTransportResponse(resp *resty.Response) *netclient.TransportResponse {
	if resp == nil || resp.RawResponse == nil {
		return nil
	}
	return &netclient.TransportResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
}
