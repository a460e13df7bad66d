package checker

import (
	"net/url"
	"regexp"
	"strings"

	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Target contains the normalized form of a scanned URL
type Target struct {
	Original  string // Original input, trimmed
	Scheme    string // http or https
	Host      string // Lowercase Unicode hostname; punycode input is decoded
	ASCIIHost string // Punycode form of Host, used for lookups
	Path      string
	URL       string // Canonical scheme-qualified URL with ASCII host

	// Registration is wired per scan by the orchestrator. Nil means no
	// registration source is configured.
	Registration RecordLoader

	parsed *url.URL
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Normalize parses raw input into a Target.
// It accepts forms such as:
//   - example.com
//   - http://example.com
//   - https://example.com:443/path?q=1
//   - example.com:8080/login
//
// Input without a scheme is treated as https. Anything that is not a
// structurally valid http(s) URL with a host is rejected with an InputError.
func Normalize(raw string) (*Target, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return nil, &errs.InputError{Err: errs.ErrEmptyURL}
	}

	withScheme := input
	if !schemePattern.MatchString(withScheme) {
		withScheme = "https://" + withScheme
	}

	parsed, err := url.Parse(withScheme)
	if err != nil {
		return nil, &errs.InputError{Input: input, Err: errs.ErrInvalidURL}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &errs.InputError{Input: input, Err: errs.ErrInvalidURL}
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" || strings.ContainsAny(host, " \t\r\n/\\") {
		return nil, &errs.InputError{Input: input, Err: errs.ErrInvalidURL}
	}

	asciiHost := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		asciiHost = converted
	}

	// One Unicode spelling per host, however it was typed.
	if strings.Contains(asciiHost, "xn--") {
		if decoded, err := idna.ToUnicode(asciiHost); err == nil && decoded != "" {
			host = decoded
		}
	}

	canonical := *parsed
	canonical.Scheme = scheme
	canonical.Host = asciiHost
	if port := parsed.Port(); port != "" {
		canonical.Host = asciiHost + ":" + port
	}

	return &Target{
		Original:  input,
		Scheme:    scheme,
		Host:      host,
		ASCIIHost: asciiHost,
		Path:      parsed.Path,
		URL:       canonical.String(),
		parsed:    &canonical,
	}, nil
}

// ParsedURL returns a copy of the canonical URL.
func (t *Target) ParsedURL() *url.URL {
	if t.parsed == nil {
		u, _ := url.Parse(t.URL)
		return u
	}
	u := *t.parsed
	return &u
}

// RegistrableDomain returns the eTLD+1 of the host, falling back to the host
// itself for IP literals and bare public suffixes.
func (t *Target) RegistrableDomain() string {
	if domain, err := publicsuffix.EffectiveTLDPlusOne(t.ASCIIHost); err == nil {
		return domain
	}
	return t.ASCIIHost
}

// TLD returns the last label of the host.
func (t *Target) TLD() string {
	return topLevelDomain(t.Host)
}

func topLevelDomain(host string) string {
	if idx := strings.LastIndex(host, "."); idx >= 0 {
		return host[idx+1:]
	}
	return host
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// leftmostLabel returns the first label of host after dropping "www.".
func leftmostLabel(host string) string {
	host = stripWWW(host)
	if idx := strings.Index(host, "."); idx >= 0 {
		return host[:idx]
	}
	return host
}
