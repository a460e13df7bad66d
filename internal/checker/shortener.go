package checker

import (
	"fmt"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

// ShortenerProbe flags hosts belonging to URL shortening services. The
// destination is never resolved.
type ShortenerProbe struct {
	Catalog *Catalog
}

func NewShortenerProbe(c *Catalog) *ShortenerProbe {
	if c == nil {
		c = DefaultCatalog()
	}
	return &ShortenerProbe{Catalog: c}
}

func (p *ShortenerProbe) Name() string { return scan.CheckShortener }

func (p *ShortenerProbe) Evaluate(target *Target) scan.CheckResult {
	if p.Catalog.IsShortener(target.Host) {
		return scan.Warn(p.Name(), fmt.Sprintf("URL shortener hides the destination (%s)", stripWWW(target.Host)), 15)
	}
	return scan.Pass(p.Name(), "Not a URL shortener")
}
