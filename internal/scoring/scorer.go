// Package scoring turns detector results into a sus score and verdict.
package scoring

import (
	"fmt"
	"math"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
)

// Tier groups detectors by how strongly a failure indicates risk.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
)

var tiers = map[string]Tier{
	scan.CheckThreatIntel:   TierCritical,
	scan.CheckHomograph:     TierCritical,
	scan.CheckDNS:           TierCritical,
	scan.CheckContent:       TierCritical,
	scan.CheckDomainAge:     TierHigh,
	scan.CheckSSL:           TierHigh,
	scan.CheckTyposquatting: TierHigh,
	scan.CheckURLPatterns:   TierHigh,
	scan.CheckRedirects:     TierMedium,
	scan.CheckShortener:     TierMedium,
	scan.CheckWhoisPrivacy:  TierMedium,
}

// TierOf returns the tier of a detector. Unknown detectors are medium.
func TierOf(name string) Tier {
	if t, ok := tiers[name]; ok {
		return t
	}
	return TierMedium
}

const (
	criticalMultiplier = 1.3
	highMultiplier     = 1.2
	criticalFailsMin   = 2
	highFailsMin       = 3
	maxScore           = 100
)

// Thresholds are the inclusive upper bounds of the safe and caution bands.
type Thresholds struct {
	SafeMax    int `mapstructure:"safe_max"`
	CautionMax int `mapstructure:"caution_max"`
}

// DefaultThresholds returns the stock verdict bands.
func DefaultThresholds() Thresholds {
	return Thresholds{SafeMax: constants.DefaultSafeMax, CautionMax: constants.DefaultCautionMax}
}

// Validate checks that the bands are ordered and inside the score range.
func (t Thresholds) Validate() error {
	if t.SafeMax < 0 || t.CautionMax > maxScore {
		return fmt.Errorf("thresholds must be within 0..%d (safe_max=%d, caution_max=%d)", maxScore, t.SafeMax, t.CautionMax)
	}
	if t.SafeMax >= t.CautionMax {
		return fmt.Errorf("safe_max (%d) must be below caution_max (%d)", t.SafeMax, t.CautionMax)
	}
	return nil
}

// Scorer combines ordered check results into a score. It holds no state
// besides its thresholds and is safe for concurrent use.
type Scorer struct {
	thresholds Thresholds
}

// New creates a scorer, rejecting invalid thresholds.
func New(th Thresholds) (*Scorer, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{thresholds: th}, nil
}

// Thresholds returns the verdict bands in use.
func (s *Scorer) Thresholds() Thresholds { return s.thresholds }

// Score sums all weights, applies the tier multipliers in order and clamps
// the result to 0..100.
func (s *Scorer) Score(results []scan.CheckResult) (int, scan.Verdict) {
	base := 0.0
	fails := make(map[Tier]int, 3)
	for _, r := range results {
		base += float64(r.Weight)
		if r.IsFail() {
			fails[TierOf(r.Name)]++
		}
	}

	if fails[TierCritical] >= criticalFailsMin {
		base *= criticalMultiplier
	}
	if fails[TierHigh] >= highFailsMin {
		base *= highMultiplier
	}

	score := int(math.Round(math.Min(maxScore, base)))
	if score < 0 {
		score = 0
	}
	return score, s.Verdict(score)
}

// Verdict maps a score onto the configured bands.
func (s *Scorer) Verdict(score int) scan.Verdict {
	switch {
	case score <= s.thresholds.SafeMax:
		return scan.VerdictSafe
	case score <= s.thresholds.CautionMax:
		return scan.VerdictCaution
	default:
		return scan.VerdictDanger
	}
}
