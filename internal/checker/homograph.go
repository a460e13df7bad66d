package checker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"golang.org/x/net/idna"
)

// HomographProbe looks for look-alike characters in the hostname.
type HomographProbe struct{}

func NewHomographProbe() *HomographProbe { return &HomographProbe{} }

func (p *HomographProbe) Name() string { return scan.CheckHomograph }

// Evaluate inspects the Unicode form of the host. The punycode form decides
// whether the domain is internationalized.
func (p *HomographProbe) Evaluate(target *Target) scan.CheckResult {
	decoded := target.Host
	ace := target.ASCIIHost
	if ace == "" {
		ace = target.Host
	}
	if strings.Contains(decoded, "xn--") {
		if u, err := idna.ToUnicode(decoded); err == nil {
			decoded = u
		}
	}

	var latin, foreign, fullWidth bool
	for _, r := range decoded {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin = true
		case unicode.Is(unicode.Cyrillic, r), unicode.Is(unicode.Greek, r):
			foreign = true
		case isFullWidth(r):
			fullWidth = true
		}
	}
	if latin && foreign {
		return scan.Fail(p.Name(), "Mixed character sets detected", 35)
	}
	if foreign || fullWidth {
		return scan.Warn(p.Name(), "Contains look-alike characters", 20)
	}
	if strings.Contains(ace, "xn--") {
		return scan.Warn(p.Name(), fmt.Sprintf("Internationalized domain (%s)", decoded), 15)
	}
	return scan.Pass(p.Name(), "No look-alike characters")
}

// isFullWidth matches the full-width ASCII variants block.
func isFullWidth(r rune) bool {
	return r >= 0xFF01 && r <= 0xFF5E
}
