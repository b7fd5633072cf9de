package netclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type user struct {
	ID           int
	FirstName    string
	EmailAddress string
}

type apiError struct {
	Code    string
	Message string
}

func (e apiError) Validate() error {
	if e.Code == "" {
		return errors.New("code is required")
	}
	return nil
}

// spyTransport records calls and replies with a canned response.
type spyTransport struct {
	mu    sync.Mutex
	calls int
	last  *TransportRequest
	resp  *TransportResponse
	err   error
}

func (s *spyTransport) Send(_ context.Context, req *TransportRequest) (*TransportResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	return s.resp, s.err
}

func jsonResponse(status int, body string) *TransportResponse {
	return &TransportResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func userEndpoint() *Endpoint[user, apiError] {
	return &Endpoint[user, apiError]{BaseURL: "https://api.example.com/v1", Path: "users/42"}
}

func TestPerformInvalidURLSkipsTransport(t *testing.T) {
	cases := []*Endpoint[user, apiError]{
		{Scheme: "ftp", Host: "example.com"},
		{Scheme: "https"},
		{Host: "bad host"},
		{BaseURL: "://missing-scheme"},
	}

	for i, ep := range cases {
		spy := &spyTransport{resp: jsonResponse(200, `{}`)}
		c := New(spy)

		if _, err := Perform(context.Background(), c, Descriptor[user, apiError](ep)); KindOf(err) != KindInvalidURL {
			t.Fatalf("case %d: expected invalid url, got %v", i, err)
		}
		if _, err := c.PerformRaw(context.Background(), ep); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("case %d: PerformRaw expected invalid url, got %v", i, err)
		}
		if spy.calls != 0 {
			t.Fatalf("case %d: transport called %d times", i, spy.calls)
		}
	}
}

func TestPerformBuildsTransportRequest(t *testing.T) {
	spy := &spyTransport{resp: jsonResponse(200, `{"id": 1}`)}
	c := New(spy, WithDefaultHeaders(map[string]string{"User-Agent": "netclient-test", "Accept": "*/*"}))

	ep := &Endpoint[user, apiError]{
		BaseURL: "https://api.example.com/v1?version=2",
		Path:    "/users",
		Query:   map[string][]string{"page": {"3"}},
		Verb:    MethodPost,
		Header:  map[string]string{"accept": "application/json"},
		Payload: []byte(`{"first_name":"Ada"}`),
	}
	if _, err := Perform[user, apiError](context.Background(), c, ep); err != nil {
		t.Fatalf("Perform: %v", err)
	}

	req := spy.last
	if req.Method != MethodPost {
		t.Fatalf("method = %s", req.Method)
	}
	if got := req.URL.String(); got != "https://api.example.com/v1/users?page=3&version=2" {
		t.Fatalf("url = %s", got)
	}
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Fatalf("descriptor header should win, got %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != "netclient-test" {
		t.Fatalf("default header missing, got %q", got)
	}
	if string(req.Body) != `{"first_name":"Ada"}` {
		t.Fatalf("body = %s", req.Body)
	}
}

func TestPerformSuccessRangeBoundaries(t *testing.T) {
	body := `{"id": 7, "first_name": "Ada", "email_address": "ada@example.com"}`
	want := user{ID: 7, FirstName: "Ada", EmailAddress: "ada@example.com"}

	for _, code := range []int{200, 201, 204, 250, 299} {
		c := New(&spyTransport{resp: jsonResponse(code, body)})
		resp, err := Perform[user, apiError](context.Background(), c, userEndpoint())
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", code, err)
		}
		if resp.Payload != want {
			t.Fatalf("status %d: payload %+v", code, resp.Payload)
		}
		if resp.StatusCode != code || resp.HeaderValue("Content-Type") != "application/json" {
			t.Fatalf("status %d: metadata %+v", code, resp.Metadata)
		}
	}

	for _, code := range []int{199, 300} {
		c := New(&spyTransport{resp: jsonResponse(code, body)})
		resp, err := Perform[user, apiError](context.Background(), c, userEndpoint())
		if err == nil {
			t.Fatalf("status %d: expected error, got %+v", code, resp)
		}
		var ne *Error
		if !errors.As(err, &ne) || ne.StatusCode != code {
			t.Fatalf("status %d: unexpected error %v", code, err)
		}
	}
}

func TestPerformSurfacesDeclaredServerError(t *testing.T) {
	c := New(&spyTransport{resp: jsonResponse(422, `{"code": "invalid_email", "message": "email is malformed"}`)})

	_, err := Perform[user, apiError](context.Background(), c, userEndpoint())
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if errors.Is(err, ErrHTTP) {
		t.Fatalf("server error must not match ErrHTTP")
	}

	payload, ok := ServerPayload[apiError](err)
	if !ok {
		t.Fatalf("server payload not retrievable from %v", err)
	}
	if payload.Code != "invalid_email" || payload.Message != "email is malformed" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	var ne *Error
	errors.As(err, &ne)
	if ne.StatusCode != 422 {
		t.Fatalf("status = %d", ne.StatusCode)
	}
}

func TestPerformFallsBackToHTTPErrorWithOriginalBytes(t *testing.T) {
	bodies := []string{
		"<html><body>Bad Gateway</body></html>",
		`{"unrelated": true}`,
		"",
	}

	for _, body := range bodies {
		c := New(&spyTransport{resp: jsonResponse(502, body)})
		_, err := Perform[user, apiError](context.Background(), c, userEndpoint())

		var ne *Error
		if !errors.As(err, &ne) || ne.Kind != KindHTTP {
			t.Fatalf("body %q: expected http error, got %v", body, err)
		}
		if ne.StatusCode != 502 {
			t.Fatalf("body %q: status = %d", body, ne.StatusCode)
		}
		if !bytes.Equal(ne.Body, []byte(body)) {
			t.Fatalf("body %q: bytes changed to %q", body, ne.Body)
		}
		if _, ok := ServerPayload[apiError](err); ok {
			t.Fatalf("body %q: http error must not expose a server payload", body)
		}
	}
}

// The error-payload decode failure is kept as the wrapped cause of the
// http error fallback instead of being discarded.
func TestHTTPErrorKeepsErrorPayloadDecodeCause(t *testing.T) {
	c := New(&spyTransport{resp: jsonResponse(500, `{"unrelated": true}`)})
	_, err := Perform[user, apiError](context.Background(), c, userEndpoint())

	cause := errors.Unwrap(err)
	if cause == nil {
		t.Fatalf("expected decode cause on %v", err)
	}
	if !strings.Contains(cause.Error(), "code is required") {
		t.Fatalf("unexpected cause %v", cause)
	}
}

func TestPerformDecodingError(t *testing.T) {
	c := New(&spyTransport{resp: jsonResponse(200, `{"id": "not-a-number"}`)})

	resp, err := Perform[user, apiError](context.Background(), c, userEndpoint())
	if resp != nil {
		t.Fatalf("expected no response, got %+v", resp)
	}
	if !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected decoding error, got %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("decoding error lost its cause")
	}
}

func TestPerformRejectsNullSuccessBody(t *testing.T) {
	c := New(&spyTransport{resp: jsonResponse(200, "null")})

	resp, err := Perform[user, apiError](context.Background(), c, userEndpoint())
	if resp != nil || !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected decoding error for null body, got %+v, %v", resp, err)
	}
}

// statusBody has no Validate, so only the decoder can reject a body.
type statusBody struct {
	Code string
}

func statusEndpoint() *Endpoint[user, statusBody] {
	return &Endpoint[user, statusBody]{BaseURL: "https://api.example.com/v1", Path: "users/42"}
}

func TestPerformNullErrorBodyFallsBackToHTTPError(t *testing.T) {
	c := New(&spyTransport{resp: jsonResponse(503, " null ")})

	_, err := Perform[user, statusBody](context.Background(), c, statusEndpoint())
	var ne *Error
	if !errors.As(err, &ne) || ne.Kind != KindHTTP {
		t.Fatalf("expected http error, got %v", err)
	}
	if string(ne.Body) != " null " {
		t.Fatalf("bytes changed to %q", ne.Body)
	}
}

func TestStrictErrorDecoderRejectsUnrelatedBody(t *testing.T) {
	body := `{"status": "down"}`

	lenient := New(&spyTransport{resp: jsonResponse(503, body)})
	if _, err := Perform[user, statusBody](context.Background(), lenient, statusEndpoint()); KindOf(err) != KindServer {
		t.Fatalf("lenient decoder: expected server error, got %v", err)
	}

	strict := New(&spyTransport{resp: jsonResponse(503, body)}).
		WithErrorDecoder(JSONDecoder{Keys: SnakeCaseKeys, DisallowUnknownFields: true})
	_, err := Perform[user, statusBody](context.Background(), strict, statusEndpoint())
	var ne *Error
	if !errors.As(err, &ne) || ne.Kind != KindHTTP || string(ne.Body) != body {
		t.Fatalf("strict decoder: expected http error with original body, got %v", err)
	}
}

func TestPerformNilEndpointIsInvalidURL(t *testing.T) {
	spy := &spyTransport{resp: jsonResponse(200, `{}`)}
	c := New(spy)

	var ep *Endpoint[user, apiError]
	_, err := Perform[user, apiError](context.Background(), c, ep)
	if KindOf(err) != KindInvalidURL {
		t.Fatalf("expected invalid url, got %v", err)
	}
	if _, err := c.PerformRaw(context.Background(), ep); KindOf(err) != KindInvalidURL {
		t.Fatalf("raw: expected invalid url, got %v", err)
	}
	if spy.calls != 0 {
		t.Fatalf("transport must not be called")
	}
}

func TestTransportFaultBecomesRequestFailed(t *testing.T) {
	reset := errors.New("connection reset by peer")
	spy := &spyTransport{err: reset}
	c := New(spy)

	_, err := Perform[user, apiError](context.Background(), c, userEndpoint())
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, reset) {
		t.Fatalf("Perform: expected request failed wrapping cause, got %v", err)
	}

	_, err = c.PerformRaw(context.Background(), userEndpoint())
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, reset) {
		t.Fatalf("PerformRaw: expected request failed wrapping cause, got %v", err)
	}
	if _, ok := err.(*Error); !ok {
		t.Fatalf("PerformRaw leaked %T", err)
	}
}

func TestTransportTaxonomyErrorPassesThrough(t *testing.T) {
	c := New(&spyTransport{err: &Error{Kind: KindInvalidResponse}})
	_, err := c.PerformRaw(context.Background(), userEndpoint())
	if KindOf(err) != KindInvalidResponse {
		t.Fatalf("expected transport taxonomy error to pass through, got %v", err)
	}
}

func TestTransportPanicBecomesRequestFailed(t *testing.T) {
	c := New(TransportFunc(func(context.Context, *TransportRequest) (*TransportResponse, error) {
		panic("boom")
	}))
	_, err := c.PerformRaw(context.Background(), userEndpoint())
	if KindOf(err) != KindRequestFailed || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected request failed from panic, got %v", err)
	}
}

func TestInvalidTransportResponse(t *testing.T) {
	cases := map[string]*TransportResponse{
		"nil":            nil,
		"missing status": {Header: http.Header{}},
		"bogus status":   {StatusCode: 1000, Header: http.Header{}},
		"nil headers":    {StatusCode: 200},
	}
	for name, resp := range cases {
		c := New(&spyTransport{resp: resp})
		if _, err := c.PerformRaw(context.Background(), userEndpoint()); KindOf(err) != KindInvalidResponse {
			t.Fatalf("%s: expected invalid response, got %v", name, err)
		}
		if _, err := Perform[user, apiError](context.Background(), c, userEndpoint()); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("%s: Perform expected invalid response, got %v", name, err)
		}
	}
}

func TestPerformRawPassesThroughAnyStatus(t *testing.T) {
	for _, code := range []int{200, 301, 404, 503} {
		c := New(&spyTransport{resp: jsonResponse(code, "plain text")})
		resp, err := c.PerformRaw(context.Background(), userEndpoint())
		if err != nil {
			t.Fatalf("status %d: %v", code, err)
		}
		if resp.StatusCode != code || string(resp.Body) != "plain text" {
			t.Fatalf("status %d: unexpected raw response %+v", code, resp)
		}
		if resp.IsSuccess() != (code == 200) {
			t.Fatalf("status %d: IsSuccess = %v", code, resp.IsSuccess())
		}
	}
}

func TestCancellationSurfacesAsRequestFailed(t *testing.T) {
	started := make(chan struct{})
	c := New(TransportFunc(func(ctx context.Context, _ *TransportRequest) (*TransportResponse, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	future := PerformAsync[user, apiError](ctx, c, userEndpoint())
	<-started
	cancel()

	resp, err := future.Await(context.Background())
	if resp != nil {
		t.Fatalf("expected no response after cancel, got %+v", resp)
	}
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected request failed wrapping context.Canceled, got %v", err)
	}
}

func TestCancelledContextWinsOverLateSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(TransportFunc(func(context.Context, *TransportRequest) (*TransportResponse, error) {
		cancel()
		return jsonResponse(200, `{"id": 1}`), nil
	}))

	if _, err := Perform[user, apiError](ctx, c, userEndpoint()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestConcurrentPerformPairsResults(t *testing.T) {
	c := New(TransportFunc(func(_ context.Context, req *TransportRequest) (*TransportResponse, error) {
		id := strings.TrimPrefix(req.URL.Path, "/users/")
		return jsonResponse(200, fmt.Sprintf(`{"id": %s, "first_name": "user-%s"}`, id, id)), nil
	}))

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ep := &Endpoint[user, apiError]{Host: "api.example.com", Path: "/users/" + strconv.Itoa(i)}
			resp, err := Perform[user, apiError](context.Background(), c, ep)
			if err != nil {
				errs <- err
				return
			}
			if resp.Payload.ID != i || resp.Payload.FirstName != "user-"+strconv.Itoa(i) {
				errs <- fmt.Errorf("call %d got %+v", i, resp.Payload)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}

func TestJSONBodyRoundTrip(t *testing.T) {
	echo := TransportFunc(func(_ context.Context, req *TransportRequest) (*TransportResponse, error) {
		return &TransportResponse{StatusCode: 200, Header: http.Header{}, Body: req.Body}, nil
	})
	c := New(echo)

	original := user{ID: 99, FirstName: "Grace", EmailAddress: "grace@example.com"}
	ep, err := NewJSONEndpoint[user, apiError](MethodPut, "https://api.example.com", "/users/99", original, JSONEncoder{Keys: SnakeCaseKeys})
	if err != nil {
		t.Fatalf("NewJSONEndpoint: %v", err)
	}
	if !strings.Contains(string(ep.Body()), `"first_name":"Grace"`) {
		t.Fatalf("body not snake_cased: %s", ep.Body())
	}

	resp, err := Perform[user, apiError](context.Background(), c, ep)
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if resp.Payload != original {
		t.Fatalf("round trip mismatch: got %+v want %+v", resp.Payload, original)
	}
}

type getUser struct {
	Expects[user, apiError]
	id int
}

func (g getUser) ResolveURL() (*url.URL, error) {
	if g.id <= 0 {
		return nil, errors.New("user id must be positive")
	}
	return &url.URL{Scheme: "https", Host: "api.example.com", Path: "/users/" + strconv.Itoa(g.id)}, nil
}

func (getUser) Method() Method             { return MethodGet }
func (getUser) Headers() map[string]string { return nil }
func (getUser) Body() []byte               { return nil }

func TestCustomDescriptor(t *testing.T) {
	spy := &spyTransport{resp: jsonResponse(200, `{"id": 5}`)}
	c := New(spy)

	resp, err := Perform[user, apiError](context.Background(), c, getUser{id: 5})
	if err != nil || resp.Payload.ID != 5 {
		t.Fatalf("unexpected result %+v, %v", resp, err)
	}

	_, err = Perform[user, apiError](context.Background(), c, getUser{id: 0})
	if !errors.Is(err, ErrInvalidURL) || spy.calls != 1 {
		t.Fatalf("expected invalid url without a second call, got %v (calls=%d)", err, spy.calls)
	}
}

func TestClientDecoderOverrides(t *testing.T) {
	base := New(&spyTransport{resp: jsonResponse(200, `{"ID": 3}`)}, WithKeyStrategy(UseDefaultKeys))
	strict := base.WithDecoder(JSONDecoder{DisallowUnknownFields: true})

	if _, err := Perform[user, apiError](context.Background(), base, userEndpoint()); err != nil {
		t.Fatalf("base client: %v", err)
	}

	unknown := New(&spyTransport{resp: jsonResponse(200, `{"id": 3, "extra": 1}`)}).WithDecoder(JSONDecoder{DisallowUnknownFields: true})
	if _, err := Perform[user, apiError](context.Background(), unknown, userEndpoint()); !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected strict decoder to reject unknown field, got %v", err)
	}
	if strict == base {
		t.Fatalf("WithDecoder must return a copy")
	}
}

type recordingLogger struct {
	noopLogger
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) DebugObj(msg, _ string, _ interface{}) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func TestPerformLogsStatus(t *testing.T) {
	log := &recordingLogger{}
	c := New(&spyTransport{resp: jsonResponse(200, `{"id": 1}`)}, WithLogger(log))
	if _, err := Perform[user, apiError](context.Background(), c, userEndpoint()); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if len(log.msgs) != 1 {
		t.Fatalf("expected one debug line, got %v", log.msgs)
	}
}
