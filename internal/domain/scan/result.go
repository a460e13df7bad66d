package scan

// CheckStatus represents the outcome of a single detector
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Detector names. They double as the identity used by the scorer tiers.
const (
	CheckDomainAge     = "domain_age"
	CheckSSL           = "ssl"
	CheckThreatIntel   = "threat_intel"
	CheckDNS           = "dns"
	CheckRedirects     = "redirects"
	CheckWhoisPrivacy  = "whois_privacy"
	CheckContent       = "content"
	CheckURLPatterns   = "url_patterns"
	CheckHomograph     = "homograph"
	CheckTyposquatting = "typosquatting"
	CheckShortener     = "shortener"
)

// CheckResult is the output of one detector. Weight is the detector's risk
// contribution and is never serialized; Cause carries the absorbed error, if
// any, for logging only.
type CheckResult struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail"`
	Weight int         `json:"-"`
	Cause  error       `json:"-"`
}

// Pass builds a passing result. Passing results always weigh zero.
func Pass(name, detail string) CheckResult {
	return CheckResult{Name: name, Status: StatusPass, Detail: detail}
}

// Warn builds a warning result with the given weight.
func Warn(name, detail string, weight int) CheckResult {
	return CheckResult{Name: name, Status: StatusWarn, Detail: detail, Weight: clampWeight(weight)}
}

// Fail builds a failing result with the given weight.
func Fail(name, detail string, weight int) CheckResult {
	return CheckResult{Name: name, Status: StatusFail, Detail: detail, Weight: clampWeight(weight)}
}

// WithCause returns a copy of the result carrying err.
func (r CheckResult) WithCause(err error) CheckResult {
	r.Cause = err
	return r
}

// IsFail reports whether the detector failed.
func (r CheckResult) IsFail() bool {
	return r.Status == StatusFail
}

func clampWeight(w int) int {
	if w < 0 {
		return 0
	}
	return w
}
