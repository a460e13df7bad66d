package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

func TestVerdictErrorCode(t *testing.T) {
	tests := []struct {
		verdict scan.Verdict
		want    int
	}{
		{scan.VerdictSafe, 0},
		{scan.VerdictCaution, 2},
		{scan.VerdictDanger, 3},
	}
	for _, tt := range tests {
		err := &VerdictError{URL: "https://example.com", Verdict: tt.verdict}
		if got := err.Code(); got != tt.want {
			t.Errorf("Code() for %s = %d, want %d", tt.verdict, got, tt.want)
		}
	}

	err := &VerdictError{URL: "https://example.com", Verdict: scan.VerdictDanger}
	if err.Error() != "https://example.com scored danger" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestParseFailOn(t *testing.T) {
	for _, value := range []string{"", "none"} {
		got, err := parseFailOn(value)
		if err != nil || got != "" {
			t.Errorf("parseFailOn(%q) = %q, %v", value, got, err)
		}
	}
	if got, err := parseFailOn("danger"); err != nil || got != scan.VerdictDanger {
		t.Errorf("parseFailOn(danger) = %q, %v", got, err)
	}
	if _, err := parseFailOn("safe"); err == nil {
		t.Error("expected safe to be rejected as a threshold")
	}
}

func TestExitCode(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	wrapped := fmt.Errorf("scan: %w", &VerdictError{Verdict: scan.VerdictCaution})
	if got := exitCode(wrapped, &buf); got != 2 {
		t.Fatalf("expected exit code 2, got %d", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("verdict errors should not print, got %q", buf.String())
	}

	if got := exitCode(errors.New("boom"), &buf); got != 1 {
		t.Fatalf("expected exit code 1, got %d", got)
	}
	if !strings.Contains(buf.String(), "Error: boom") {
		t.Fatalf("expected error message, got %q", buf.String())
	}
}
