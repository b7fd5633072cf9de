package netclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client executes requests over a Transport. It is immutable after New and
// safe for concurrent use.
type Client struct {
	transport      Transport
	decoder        Decoder
	errorDecoder   Decoder
	defaultHeaders map[string]string
	log            Logger
}

// Option configures a Client.
type Option func(*Client)

// New builds a client. Both payload decoders default to JSON with snake_case
// wire keys.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport:    transport,
		decoder:      JSONDecoder{Keys: SnakeCaseKeys},
		errorDecoder: JSONDecoder{Keys: SnakeCaseKeys},
		log:          noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = ensureLogger(c.log)
	return c
}

// WithDecoder sets the decoder used for 2xx payloads.
func WithDecoder(d Decoder) Option {
	return func(c *Client) {
		if d != nil {
			c.decoder = d
		}
	}
}

// WithErrorDecoder sets the decoder used for non-2xx payloads.
func WithErrorDecoder(d Decoder) Option {
	return func(c *Client) {
		if d != nil {
			c.errorDecoder = d
		}
	}
}

// WithKeyStrategy replaces both decoders with JSON decoders using keys.
func WithKeyStrategy(keys KeyStrategy) Option {
	return func(c *Client) {
		c.decoder = JSONDecoder{Keys: keys}
		c.errorDecoder = JSONDecoder{Keys: keys}
	}
}

// WithDefaultHeaders sets headers sent with every request. Descriptor
// headers take precedence.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if c.defaultHeaders == nil {
			c.defaultHeaders = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithDecoder returns a copy of c using d for 2xx payloads.
func (c *Client) WithDecoder(d Decoder) *Client {
	cp := *c
	WithDecoder(d)(&cp)
	return &cp
}

// WithErrorDecoder returns a copy of c using d for non-2xx payloads.
func (c *Client) WithErrorDecoder(d Decoder) *Client {
	cp := *c
	WithErrorDecoder(d)(&cp)
	return &cp
}

// PerformRaw sends req and returns the body and metadata for any status code.
// The caller is responsible for checking the status and decoding the body.
func (c *Client) PerformRaw(ctx context.Context, req Request) (*RawResponse, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return &RawResponse{
		Metadata: Metadata{StatusCode: resp.StatusCode, Header: resp.Header},
		Body:     resp.Body,
	}, nil
}

// Perform sends d and decodes the body: 2xx into S, anything else into E.
//
// A non-2xx body that decodes as E is returned as a KindServer error carrying
// the payload; otherwise a KindHTTP error carrying the raw body is returned.
// Plain JSON decoding accepts any object for a struct E, so an unrelated error
// body yields a zero payload; implement Validator on E or set
// JSONDecoder.DisallowUnknownFields on the error decoder to reject it.
func Perform[S, E any](ctx context.Context, c *Client, d Descriptor[S, E]) (*Response[S], error) {
	resp, err := c.send(ctx, d)
	if err != nil {
		return nil, err
	}

	c.log.DebugObj("received response", "response_meta", map[string]any{
		"status_code": resp.StatusCode,
		"body_bytes":  len(resp.Body),
	})

	if isSuccess(resp.StatusCode) {
		var payload S
		if err := c.decoder.Decode(resp.Body, &payload); err != nil {
			return nil, &Error{
				Kind:       KindDecoding,
				StatusCode: resp.StatusCode,
				Header:     resp.Header,
				Body:       resp.Body,
				Err:        err,
			}
		}
		return &Response[S]{
			Metadata: Metadata{StatusCode: resp.StatusCode, Header: resp.Header},
			Payload:  payload,
		}, nil
	}

	var serverErr E
	if err := c.errorDecoder.Decode(resp.Body, &serverErr); err != nil {
		return nil, &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
			Err:        err,
		}
	}
	return nil, &Error{
		Kind:       KindServer,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		Payload:    serverErr,
	}
}

// send runs the shared part of both entry points: URL resolution, dispatch
// and response shape validation.
func (c *Client) send(ctx context.Context, req Request) (*TransportResponse, error) {
	if c == nil || c.transport == nil {
		return nil, requestFailed(errors.New("client has no transport"))
	}
	if req == nil {
		return nil, invalidURL(errors.New("request is nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	u, err := req.ResolveURL()
	if err != nil {
		return nil, invalidURL(err)
	}
	if u == nil {
		return nil, invalidURL(errors.New("request resolved to a nil URL"))
	}

	method := req.Method()
	if method == "" {
		method = MethodGet
	}

	header := make(http.Header, len(c.defaultHeaders)+len(req.Headers()))
	for k, v := range c.defaultHeaders {
		header.Set(k, v)
	}
	for k, v := range req.Headers() {
		header.Set(k, v)
	}

	resp, err := c.dispatch(ctx, &TransportRequest{
		Method: method,
		URL:    u,
		Header: header,
		Body:   req.Body(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, requestFailed(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, requestFailed(ctxErr)
	}
	if resp == nil || resp.StatusCode < 100 || resp.StatusCode > 599 || resp.Header == nil {
		return nil, &Error{Kind: KindInvalidResponse}
	}
	return resp, nil
}

func (c *Client) dispatch(ctx context.Context, req *TransportRequest) (resp *TransportResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return c.transport.Send(ctx, req)
}
