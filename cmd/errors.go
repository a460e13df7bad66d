package cmd

import (
	"fmt"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

// VerdictError is returned by scan when --fail-on is met. It carries no
// message to print; the report has already been written.
type VerdictError struct {
	URL     string
	Verdict scan.Verdict
}

func (e *VerdictError) Error() string {
	return fmt.Sprintf("%s scored %s", e.URL, e.Verdict)
}

// Code maps the verdict to a process exit code.
func (e *VerdictError) Code() int {
	switch e.Verdict {
	case scan.VerdictDanger:
		return 3
	case scan.VerdictCaution:
		return 2
	}
	return 0
}

// verdictRank orders verdicts by severity.
func verdictRank(v scan.Verdict) int {
	switch v {
	case scan.VerdictSafe:
		return 1
	case scan.VerdictCaution:
		return 2
	case scan.VerdictDanger:
		return 3
	}
	return 0
}

func parseFailOn(value string) (scan.Verdict, error) {
	switch v := scan.Verdict(value); v {
	case "", "none":
		return "", nil
	case scan.VerdictCaution, scan.VerdictDanger:
		return v, nil
	}
	return "", fmt.Errorf("invalid --fail-on value %q (want caution, danger or none)", value)
}
