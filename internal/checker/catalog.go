package checker

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog holds the static lists consumed by the detectors. A Catalog is
// read-only once returned by ParseCatalog and safe to share across scans.
type Catalog struct {
	Brands               []string `yaml:"brands"`
	TrustedTLDs          []string `yaml:"trusted_tlds"`
	DisposableTLDs       []string `yaml:"disposable_tlds"`
	Shorteners           []string `yaml:"shorteners"`
	PhishingKeywords     []string `yaml:"phishing_keywords"`
	ExecutableExtensions []string `yaml:"executable_extensions"`
	PrivacyIndicators    []string `yaml:"privacy_indicators"`
	LegitimacyMarkers    []string `yaml:"legitimacy_markers"`

	trusted    map[string]struct{}
	disposable map[string]struct{}
	shorteners map[string]struct{}
	executable map[string]struct{}
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
})

// DefaultCatalog returns the embedded catalog, parsed on first use.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// LoadCatalogFile reads a catalog document from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog and builds its lookup sets.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Brands) == 0 {
		return nil, errors.New("catalog: brands cannot be empty")
	}
	if len(c.TrustedTLDs) == 0 {
		return nil, errors.New("catalog: trusted_tlds cannot be empty")
	}

	c.Brands = normalizeList(c.Brands)
	c.PhishingKeywords = normalizeList(c.PhishingKeywords)
	c.PrivacyIndicators = normalizeList(c.PrivacyIndicators)
	c.LegitimacyMarkers = normalizeList(c.LegitimacyMarkers)
	c.trusted = toSet(c.TrustedTLDs)
	c.disposable = toSet(c.DisposableTLDs)
	c.shorteners = toSet(c.Shorteners)
	c.executable = toSet(c.ExecutableExtensions)
	return &c, nil
}

// IsTrustedTLD reports whether tld belongs to the trusted set.
func (c *Catalog) IsTrustedTLD(tld string) bool {
	_, ok := c.trusted[strings.ToLower(tld)]
	return ok
}

// IsDisposableTLD reports whether tld is free or commonly abused.
func (c *Catalog) IsDisposableTLD(tld string) bool {
	_, ok := c.disposable[strings.ToLower(tld)]
	return ok
}

// IsShortener reports whether host is a known URL shortener, with or
// without a leading "www.".
func (c *Catalog) IsShortener(host string) bool {
	host = strings.ToLower(host)
	if _, ok := c.shorteners[host]; ok {
		return true
	}
	_, ok := c.shorteners[stripWWW(host)]
	return ok
}

// IsExecutableExtension reports whether ext (without the dot) is executable.
func (c *Catalog) IsExecutableExtension(ext string) bool {
	_, ok := c.executable[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range normalizeList(items) {
		set[item] = struct{}{}
	}
	return set
}
