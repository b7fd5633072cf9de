package probes

import (
	"fmt"
	"net/url"

	"github.com/samvad-hq/samvad-netclient/pkg/netclient"
)

// buildEndpoint turns a probe into a request descriptor expecting S on
// success and E on failure.
func buildEndpoint[S, E any](p Probe) (*netclient.Endpoint[S, E], error) {
	method, err := netclient.ParseMethod(p.Method)
	if err != nil {
		return nil, err
	}

	var ep *netclient.Endpoint[S, E]
	if p.JSONBody != nil {
		ep, err = netclient.NewJSONEndpoint[S, E](method, p.BaseURL, p.Path, p.JSONBody, netclient.JSONEncoder{Keys: p.Keys()})
		if err != nil {
			return nil, fmt.Errorf("probe %q: %w", p.ID, err)
		}
	} else {
		ep = &netclient.Endpoint[S, E]{
			BaseURL: p.BaseURL,
			Path:    p.Path,
			Verb:    method,
		}
		if p.Body != "" {
			ep.Payload = []byte(p.Body)
		}
	}

	if len(p.Headers) > 0 {
		if ep.Header == nil {
			ep.Header = make(map[string]string, len(p.Headers))
		}
		for k, v := range p.Headers {
			ep.Header[k] = v
		}
	}
	if len(p.Query) > 0 {
		ep.Query = make(url.Values, len(p.Query))
		for k, v := range p.Query {
			ep.Query.Set(k, v)
		}
	}
	return ep, nil
}

// displayURL is the URL recorded on outcomes: the resolved one when
// possible, otherwise the raw configuration.
func displayURL(req netclient.Request, p Probe) string {
	if req != nil {
		if u, err := req.ResolveURL(); err == nil {
			return u.String()
		}
	}
	return p.BaseURL + p.Path
}
