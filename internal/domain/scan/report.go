package scan

// Verdict is the discrete classification derived from a score
type Verdict string

const (
	VerdictSafe    Verdict = "safe"
	VerdictCaution Verdict = "caution"
	VerdictDanger  Verdict = "danger"
)

// Report is the result of scanning one URL. It lives only for the duration
// of a request and is never persisted.
type Report struct {
	URL     string        `json:"url"`
	Score   int           `json:"score"`
	Verdict Verdict       `json:"verdict"`
	Checks  []CheckResult `json:"checks"`
}

// Check returns the result recorded under name.
func (r *Report) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Counts returns how many checks ended in each status.
func (r *Report) Counts() map[CheckStatus]int {
	counts := make(map[CheckStatus]int, 3)
	for _, c := range r.Checks {
		counts[c.Status]++
	}
	return counts
}
