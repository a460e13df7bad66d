package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
)

// RedirectProbe walks the redirect chain of the target
type RedirectProbe struct {
	Client  *http.Client
	MaxHops int
}

// NewRedirectProbe creates a redirect detector with manual redirect handling.
func NewRedirectProbe() *RedirectProbe {
	return &RedirectProbe{
		Client:  NewClient(ClientConfig{Timeout: constants.RedirectTimeout}),
		MaxHops: constants.MaxRedirectHops,
	}
}

func (p *RedirectProbe) Name() string { return scan.CheckRedirects }

func (p *RedirectProbe) Timeout() time.Duration { return constants.RedirectTimeout }

// Check follows Location headers one hop at a time. Loops fail immediately;
// scheme upgrades and www toggles on the same host are not counted.
func (p *RedirectProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	client := p.Client
	if client == nil {
		client = NewClient(ClientConfig{Timeout: constants.RedirectTimeout})
	} else if client.CheckRedirect == nil {
		client = withManualRedirects(client)
	}
	maxHops := p.MaxHops
	if maxHops <= 0 {
		maxHops = constants.MaxRedirectHops
	}

	current := target.ParsedURL()
	seen := make(map[string]struct{})
	suspicious := 0

	for i := 0; i < maxHops; i++ {
		key := current.String()
		if _, ok := seen[key]; ok {
			return scan.Fail(p.Name(), "Redirect loop detected", 30)
		}
		seen[key] = struct{}{}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, key, nil)
		if err != nil {
			return scan.Warn(p.Name(), "Could not check redirects", 5).WithCause(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return scan.Warn(p.Name(), "Could not check redirects", 5).WithCause(err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if !isRedirectStatus(resp.StatusCode) {
			break
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			break
		}
		ref, err := url.Parse(loc)
		if err != nil {
			break
		}
		next := current.ResolveReference(ref)
		if !isBenignRedirect(current, next) {
			suspicious++
		}
		current = next
	}

	return classifyRedirects(p.Name(), suspicious)
}

func classifyRedirects(name string, suspicious int) scan.CheckResult {
	switch {
	case suspicious >= 5:
		return scan.Fail(name, fmt.Sprintf("Excessive redirects (%d)", suspicious), 25)
	case suspicious >= 3:
		return scan.Warn(name, fmt.Sprintf("Multiple redirects (%d)", suspicious), 15)
	case suspicious >= 1:
		return scan.Warn(name, plural(suspicious, "redirect"), 5)
	default:
		return scan.Pass(name, "No suspicious redirects")
	}
}

// isBenignRedirect reports whether a hop only upgrades http to https or
// toggles a leading "www." on the same host.
func isBenignRedirect(from, to *url.URL) bool {
	fromHost := strings.ToLower(from.Hostname())
	toHost := strings.ToLower(to.Hostname())
	fromScheme := strings.ToLower(from.Scheme)
	toScheme := strings.ToLower(to.Scheme)

	if fromHost == toHost && fromScheme == "http" && toScheme == "https" {
		return true
	}

	wwwToggle := fromHost != toHost && stripWWW(fromHost) == stripWWW(toHost)
	schemeKept := fromScheme == toScheme || (fromScheme == "http" && toScheme == "https")
	return wwwToggle && schemeKept
}
