package checker

import (
	"fmt"
	"strings"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

const maxBrandPadding = 4

// TyposquatProbe compares the leftmost host label against known brands.
type TyposquatProbe struct {
	Catalog *Catalog
}

func NewTyposquatProbe(c *Catalog) *TyposquatProbe {
	if c == nil {
		c = DefaultCatalog()
	}
	return &TyposquatProbe{Catalog: c}
}

func (p *TyposquatProbe) Name() string { return scan.CheckTyposquatting }

// Evaluate walks the brand list in order and stops at the first brand that
// produces a verdict. An exact brand on a trusted TLD is the brand itself.
func (p *TyposquatProbe) Evaluate(target *Target) scan.CheckResult {
	label := leftmostLabel(target.Host)
	tld := target.TLD()

	for _, brand := range p.Catalog.Brands {
		if label == brand {
			if p.Catalog.IsTrustedTLD(tld) {
				return scan.Pass(p.Name(), "No brand impersonation detected")
			}
			return scan.Warn(p.Name(), fmt.Sprintf("Brand match with unusual TLD (%s.%s)", brand, tld), 20)
		}
		if len(label) >= 4 {
			if d := levenshtein(label, brand); d >= 1 && d <= 2 {
				return scan.Fail(p.Name(), fmt.Sprintf("Very similar to %q", brand), 30)
			}
		}
		if containsWithPadding(label, brand) {
			return scan.Warn(p.Name(), fmt.Sprintf("Brand name %q with extra characters", brand), 25)
		}
	}
	return scan.Pass(p.Name(), "No brand impersonation detected")
}

func containsWithPadding(label, brand string) bool {
	extra := len(label) - len(brand)
	return extra > 0 && extra <= maxBrandPadding && strings.Contains(label, brand)
}

// levenshtein returns the edit distance between a and b, counted in runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
