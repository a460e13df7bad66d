package checker

import (
	"net"
	"net/http"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
)

// ClientConfig holds settings for probe HTTP clients.
type ClientConfig struct {
	Timeout         time.Duration
	FollowRedirects bool
	Transport       http.RoundTripper // Optional base transport (tests)
	Headers         http.Header
}

// headerRoundTripper injects fixed headers into every request. Probes never
// retry, so unlike a general-purpose client it passes errors straight through.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", constants.UserAgent)
	}
	for k, vs := range h.headers {
		r.Header.Del(k)
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	return h.base.RoundTrip(r)
}

// NewClient returns an HTTP client for probes. Unless FollowRedirects is set
// the client hands 3xx responses back to the caller untouched.
func NewClient(cfg ClientConfig) *http.Client {
	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   cfg.Timeout,
			ResponseHeaderTimeout: cfg.Timeout,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          50,
			IdleConnTimeout:       90 * time.Second,
		}
	}

	client := &http.Client{
		Transport: &headerRoundTripper{base: base, headers: cfg.Headers},
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// withManualRedirects returns a shallow copy of c that does not follow
// redirects. Probes use it to adapt caller-supplied clients.
func withManualRedirects(c *http.Client) *http.Client {
	clone := *c
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &clone
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
