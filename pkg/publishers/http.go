package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-netclient/pkg/httpclient"
	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
)

type httpPublisher struct {
	id      string
	method  netclient.Method
	url     string
	headers map[string]string
	client  *netclient.Client
	typ     string
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	method := netclient.MethodPost
	if strings.TrimSpace(cfg.HTTP.Method) != "" {
		m, err := netclient.ParseMethod(cfg.HTTP.Method)
		if err != nil {
			return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
		}
		method = m
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds * time.Second
	}

	log = ensureLogger(log)
	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  netclient.New(httpclient.NewRestyTransport(timeout), netclient.WithLogger(log)),
		log:     log,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

// Publish posts the event as JSON and treats any non-2xx status as a failure.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	ep, err := netclient.NewJSONEndpoint[netclient.Empty, netclient.Empty](h.method, h.url, "", evt, netclient.JSONEncoder{})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	for k, v := range h.headers {
		ep.Header[k] = v
	}
	ep.Header["Content-Type"] = "application/json"

	resp, err := h.client.PerformRaw(ctx, ep)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"status_code":  resp.StatusCode,
	})
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
