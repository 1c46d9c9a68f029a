package twitter

import (
	"net/http"
	"net/url"
)

type hostRewriter struct {
	target *url.URL
	next   http.RoundTripper
}

// rewriteHost sends every request to base, keeping path and query.
func rewriteHost(base string, next http.RoundTripper) http.RoundTripper {
	u, err := url.Parse(base)
	if err != nil {
		return next
	}
	return &hostRewriter{target: u, next: next}
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = h.target.Scheme
	r.URL.Host = h.target.Host
	r.Host = h.target.Host
	return h.next.RoundTrip(r)
}
