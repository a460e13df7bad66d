package checker

import (
	"fmt"
	"net"
	"path"
	"regexp"
	"strings"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

// lexicalInput is the slice of the target the URL pattern rules look at.
type lexicalInput struct {
	host    string
	url     string
	path    string
	tld     string
	catalog *Catalog
}

// lexicalRule is one entry of the URL pattern table. Rules are evaluated in
// order and the first match decides the result.
type lexicalRule struct {
	name   string
	weight int
	reason string
	match  func(in lexicalInput) bool
}

var (
	chainedSubdomainPattern = regexp.MustCompile(`([a-z0-9-]+\.){5,}`)
	digitRunPattern         = regexp.MustCompile(`\d{4,}`)
	dynamicScriptPattern    = regexp.MustCompile(`(?i)\.(php|asp|aspx|jsp|cgi)\?`)
)

const (
	longHostThreshold  = 50
	randomLabelMinLen  = 8
	randomVowelRatio   = 0.15
	disposableTLDScore = 15
)

var lexicalRules = []lexicalRule{
	{
		name: "ip_host", weight: 30,
		reason: "Uses IP address instead of domain",
		match: func(in lexicalInput) bool {
			ip := net.ParseIP(in.host)
			return ip != nil && ip.To4() != nil
		},
	},
	{
		name: "at_sign", weight: 25,
		reason: "Contains @ symbol (credential obfuscation)",
		match:  func(in lexicalInput) bool { return strings.Contains(in.url, "@") },
	},
	{
		name: "executable", weight: 30,
		reason: "Links directly to an executable file",
		match: func(in lexicalInput) bool {
			ext := path.Ext(in.path)
			return ext != "" && in.catalog.IsExecutableExtension(ext)
		},
	},
	{
		name: "keyword_disposable_tld", weight: 25,
		reason: "Phishing keyword on a high-risk TLD",
		match: func(in lexicalInput) bool {
			if !in.catalog.IsDisposableTLD(in.tld) {
				return false
			}
			lower := strings.ToLower(in.url)
			for _, kw := range in.catalog.PhishingKeywords {
				if strings.Contains(lower, kw) {
					return true
				}
			}
			return false
		},
	},
	{
		name: "deep_subdomains", weight: 20,
		reason: "Excessive subdomain nesting",
		match:  func(in lexicalInput) bool { return chainedSubdomainPattern.MatchString(in.host) },
	},
	{
		name: "digit_run", weight: 15,
		reason: "Long digit sequence in hostname",
		match:  func(in lexicalInput) bool { return digitRunPattern.MatchString(in.host) },
	},
	{
		name: "double_hyphen", weight: 15,
		reason: "Consecutive hyphens in hostname",
		match:  func(in lexicalInput) bool { return hasDoubleHyphen(in.host) },
	},
	{
		name: "dynamic_script", weight: 10,
		reason: "Dynamic script with query parameters",
		match:  func(in lexicalInput) bool { return dynamicScriptPattern.MatchString(in.url) },
	},
}

// URLPatternProbe applies lexical heuristics to the raw URL.
type URLPatternProbe struct {
	Catalog *Catalog
	rules   []lexicalRule
}

// NewURLPatternProbe creates a URL pattern detector over the given catalog.
func NewURLPatternProbe(c *Catalog) *URLPatternProbe {
	if c == nil {
		c = DefaultCatalog()
	}
	return &URLPatternProbe{Catalog: c, rules: lexicalRules}
}

func (p *URLPatternProbe) Name() string { return scan.CheckURLPatterns }

// Evaluate runs the rule table, then the weaker fallbacks when no rule hit.
func (p *URLPatternProbe) Evaluate(target *Target) scan.CheckResult {
	in := lexicalInput{
		host:    target.Host,
		url:     target.Original,
		path:    strings.ToLower(target.Path),
		tld:     target.TLD(),
		catalog: p.Catalog,
	}
	// Userinfo is stripped by the parser; the raw input still carries it.
	if in.url == "" {
		in.url = target.URL
	}

	for _, rule := range p.rules {
		if rule.match(in) {
			return scan.Fail(p.Name(), rule.reason, rule.weight)
		}
	}

	switch {
	case p.Catalog.IsDisposableTLD(in.tld):
		return scan.Warn(p.Name(), fmt.Sprintf("Uses high-risk TLD (.%s)", in.tld), disposableTLDScore)
	case len(in.host) > longHostThreshold:
		return scan.Warn(p.Name(), "Hostname is unusually long", 10)
	case looksRandom(leftmostLabel(in.host)):
		return scan.Warn(p.Name(), "Hostname looks possibly random", 10)
	}
	return scan.Pass(p.Name(), "No suspicious URL patterns")
}

// looksRandom reports whether a label is long and nearly vowel-free.
func looksRandom(label string) bool {
	if len(label) <= randomLabelMinLen {
		return false
	}
	vowels := 0
	for _, r := range label {
		switch r {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		}
	}
	return float64(vowels)/float64(len(label)) < randomVowelRatio
}

// hasDoubleHyphen reports "--" in any host label, ignoring the "xn--" ACE
// prefix of labels that did not decode.
func hasDoubleHyphen(host string) bool {
	for _, label := range strings.Split(host, ".") {
		if strings.Contains(strings.TrimPrefix(label, "xn--"), "--") {
			return true
		}
	}
	return false
}
