package checker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
)

// PrivacyProbe flags registrations hidden behind an anonymizing service. It
// reads the same record the domain age detector fetched.
type PrivacyProbe struct {
	Catalog *Catalog
}

// NewPrivacyProbe creates a registration privacy detector.
func NewPrivacyProbe(c *Catalog) *PrivacyProbe {
	if c == nil {
		c = DefaultCatalog()
	}
	return &PrivacyProbe{Catalog: c}
}

func (p *PrivacyProbe) Name() string { return scan.CheckWhoisPrivacy }

func (p *PrivacyProbe) Timeout() time.Duration { return constants.RegistrationTimeout }

// Check searches organization, remarks and contact fields for privacy
// service indicators.
func (p *PrivacyProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	if target.Registration == nil {
		return scan.Pass(p.Name(), "Registration record unavailable")
	}
	rec, err := target.Registration(ctx)
	if err != nil {
		return scan.Pass(p.Name(), "Registration record unavailable").WithCause(err)
	}

	if indicator, ok := p.findIndicator(rec.TextFields()); ok {
		return scan.Warn(p.Name(), fmt.Sprintf("Registrant hidden by privacy service (%q)", indicator), 15)
	}
	return scan.Pass(p.Name(), "Registrant details are public")
}

func (p *PrivacyProbe) findIndicator(fields []string) (string, bool) {
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, indicator := range p.Catalog.PrivacyIndicators {
			if strings.Contains(lower, indicator) {
				return indicator, true
			}
		}
	}
	return "", false
}
