package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

type fakeScanner struct {
	report *scan.Report
	err    error
	got    string
}

func (f *fakeScanner) Scan(ctx context.Context, rawURL string) (*scan.Report, error) {
	f.got = rawURL
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func sampleReport(verdict scan.Verdict, score int) *scan.Report {
	return &scan.Report{
		URL:     "https://paypa1.example",
		Score:   score,
		Verdict: verdict,
		Checks: []scan.CheckResult{
			scan.Pass(scan.CheckSSL, "Valid certificate"),
			scan.Warn(scan.CheckDomainAge, "Domain registered 45 days ago", 20),
			scan.Fail(scan.CheckTyposquatting, `Very similar to "paypal"`, 30),
		},
	}
}

func TestRunScanText(t *testing.T) {
	disableColor(t)

	fake := &fakeScanner{report: sampleReport(scan.VerdictCaution, 50)}
	var out bytes.Buffer
	if err := runScan(context.Background(), &out, fake, "paypa1.example", scanOptions{}); err != nil {
		t.Fatalf("runScan failed: %v", err)
	}
	if fake.got != "paypa1.example" {
		t.Fatalf("scanner received %q", fake.got)
	}

	output := out.String()
	for _, want := range []string{
		"https://paypa1.example",
		"Score: caution 50/100",
		"domain_age",
		"Domain registered 45 days ago",
		`Very similar to "paypal"`,
		"1 pass, 1 warn, 1 fail",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRunScanJSON(t *testing.T) {
	fake := &fakeScanner{report: sampleReport(scan.VerdictCaution, 50)}
	var out bytes.Buffer
	if err := runScan(context.Background(), &out, fake, "paypa1.example", scanOptions{JSON: true}); err != nil {
		t.Fatalf("runScan failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["verdict"] != "caution" || decoded["score"] != float64(50) {
		t.Fatalf("unexpected report: %v", decoded)
	}
	checks := decoded["checks"].([]interface{})
	first := checks[0].(map[string]interface{})
	if _, leaked := first["Weight"]; leaked {
		t.Fatal("weights must not be serialized")
	}
	if len(first) != 3 {
		t.Fatalf("expected name, status and detail only, got %v", first)
	}
}

func TestRunScanFailOn(t *testing.T) {
	disableColor(t)

	tests := []struct {
		name     string
		verdict  scan.Verdict
		failOn   scan.Verdict
		wantCode int
	}{
		{name: "below threshold", verdict: scan.VerdictSafe, failOn: scan.VerdictCaution},
		{name: "at threshold", verdict: scan.VerdictCaution, failOn: scan.VerdictCaution, wantCode: 2},
		{name: "above threshold", verdict: scan.VerdictDanger, failOn: scan.VerdictCaution, wantCode: 3},
		{name: "danger only", verdict: scan.VerdictCaution, failOn: scan.VerdictDanger},
		{name: "disabled", verdict: scan.VerdictDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeScanner{report: sampleReport(tt.verdict, 10)}
			err := runScan(context.Background(), &bytes.Buffer{}, fake, "x.example", scanOptions{FailOn: tt.failOn})

			var verdictErr *VerdictError
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.As(err, &verdictErr) {
				t.Fatalf("expected VerdictError, got %v", err)
			}
			if verdictErr.Code() != tt.wantCode {
				t.Fatalf("expected code %d, got %d", tt.wantCode, verdictErr.Code())
			}
		})
	}
}

func TestRunScanInvalidInput(t *testing.T) {
	fake := &fakeScanner{err: &errs.InputError{Input: "::", Err: errors.New("missing host")}}
	var out bytes.Buffer
	err := runScan(context.Background(), &out, fake, "::", scanOptions{})
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed on error, got %q", out.String())
	}
}

func TestScanCommandUsesStoredContext(t *testing.T) {
	disableColor(t)

	original := globalAppContext
	defer func() { globalAppContext = original }()

	fake := &fakeScanner{report: sampleReport(scan.VerdictSafe, 0)}
	globalAppContext = &AppContext{Scanner: fake}

	var out bytes.Buffer
	scanCmd.SetOut(&out)
	defer scanCmd.SetOut(nil)
	scanCmd.SetContext(context.Background())

	if err := scanCmd.RunE(scanCmd, []string{"example.com"}); err != nil {
		t.Fatalf("scan command failed: %v", err)
	}
	if fake.got != "example.com" {
		t.Fatalf("scanner received %q", fake.got)
	}
	if !strings.Contains(out.String(), "Score: safe 0/100") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}
