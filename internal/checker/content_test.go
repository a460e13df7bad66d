package checker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

func newPageServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		} else {
			w.Header()["Content-Type"] = nil
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func checkPage(t *testing.T, contentType, body string) scan.CheckResult {
	t.Helper()
	srv := newPageServer(t, contentType, body)
	probe := NewContentProbe(DefaultCatalog())
	probe.Client = srv.Client()
	return probe.Check(context.Background(), mustTarget(t, srv.URL))
}

const loginForm = `<form action="/auth"><input type="text" name="user"><input type="PASSWORD" name="pass"></form>`

func TestContentProbe_Check(t *testing.T) {
	var externalScripts strings.Builder
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&externalScripts, `<script src="https://cdn%d.example.net/lib.js"></script>`, i)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus scan.CheckStatus
		wantWeight int
	}{
		{
			name:       "clean page",
			body:       `<html><body><h1>Hello</h1><script src="/app.js"></script></body></html>`,
			wantStatus: scan.StatusPass,
		},
		{
			name:       "bare login form",
			body:       `<html><body>` + loginForm + `</body></html>`,
			wantStatus: scan.StatusFail,
			wantWeight: 40,
		},
		{
			name:       "login form with policy links",
			body:       `<html><body>` + loginForm + `<a href="/legal">Privacy Policy</a></body></html>`,
			wantStatus: scan.StatusPass,
		},
		{
			name:       "login form with site name",
			body:       `<html><head><meta property="og:site_name" content="Example"></head><body>` + loginForm + `</body></html>`,
			wantStatus: scan.StatusPass,
		},
		{
			name:       "eval only",
			body:       `<html><script>eval("1+1")</script></html>`,
			wantStatus: scan.StatusWarn,
			wantWeight: 15,
		},
		{
			name:       "hidden iframe",
			body:       `<html><iframe src="https://tracker.example" width="0" height="0"></iframe></html>`,
			wantStatus: scan.StatusWarn,
			wantWeight: 20,
		},
		{
			name:       "styled hidden iframe",
			body:       `<html><iframe src="https://tracker.example" style="display: none"></iframe></html>`,
			wantStatus: scan.StatusWarn,
			wantWeight: 20,
		},
		{
			name:       "script redirect",
			body:       `<html><script>window.location.href = "https://elsewhere.example";</script></html>`,
			wantStatus: scan.StatusWarn,
			wantWeight: 10,
		},
		{
			name:       "too many external scripts",
			body:       `<html><head>` + externalScripts.String() + `</head></html>`,
			wantStatus: scan.StatusWarn,
			wantWeight: 5,
		},
		{
			name:       "three signatures escalate",
			body:       `<html><script>eval(atob("YQ==")); document.write("x");</script></html>`,
			wantStatus: scan.StatusFail,
			wantWeight: 25,
		},
		{
			name: "weight is capped",
			body: `<html><body>` + loginForm + `<iframe width="0"></iframe><script>
				eval(String.fromCharCode(97)); document.write(btoa("x")); location.replace("/x");
			</script></body></html>`,
			wantStatus: scan.StatusFail,
			wantWeight: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkPage(t, "text/html; charset=utf-8", tt.body)
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s (%s)", result.Status, tt.wantStatus, result.Detail)
			}
			if result.Weight != tt.wantWeight {
				t.Errorf("Weight = %d, want %d (%s)", result.Weight, tt.wantWeight, result.Detail)
			}
		})
	}
}

func TestContentProbe_SkipsNonMarkup(t *testing.T) {
	for _, contentType := range []string{"image/png", "application/pdf", ""} {
		t.Run(contentType, func(t *testing.T) {
			// The body would fail if scanned.
			result := checkPage(t, contentType, `<input type="password"><script>eval(x)</script>`)
			if result.Status != scan.StatusPass || result.Weight != 0 {
				t.Errorf("got %s/%d, want pass/0", result.Status, result.Weight)
			}
			if !strings.Contains(result.Detail, "not inspected") {
				t.Errorf("Detail = %q", result.Detail)
			}
		})
	}
}

func TestContentProbe_Charset(t *testing.T) {
	// Latin-1 bodies are decoded before the signatures run.
	body := "<html><p>\xe9valuer</p><script>eval(1)</script></html>"
	result := checkPage(t, "text/html; charset=iso-8859-1", body)
	if result.Status != scan.StatusWarn || result.Weight != 15 {
		t.Errorf("got %s/%d, want warn/15 (%s)", result.Status, result.Weight, result.Detail)
	}
}

func TestContentProbe_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	result := NewContentProbe(nil).Check(context.Background(), mustTarget(t, addr))
	if result.Status != scan.StatusWarn || result.Weight != 5 {
		t.Errorf("got %s/%d, want warn/5", result.Status, result.Weight)
	}
}

func TestAggregateSignatures(t *testing.T) {
	sigs := contentSignatures(DefaultCatalog())
	byName := make(map[string]contentSignature, len(sigs))
	for _, s := range sigs {
		byName[s.name] = s
	}

	result := aggregateSignatures("content", nil)
	if result.Status != scan.StatusPass {
		t.Errorf("no signatures: Status = %s, want pass", result.Status)
	}

	result = aggregateSignatures("content", []contentSignature{byName["document_write"], byName["eval"]})
	if result.Status != scan.StatusWarn || result.Weight != 20 {
		t.Errorf("two signatures: got %s/%d, want warn/20", result.Status, result.Weight)
	}

	result = aggregateSignatures("content", []contentSignature{byName["external_scripts"], byName["password_form"]})
	if result.Status != scan.StatusFail || result.Weight != 45 {
		t.Errorf("critical signature: got %s/%d, want fail/45", result.Status, result.Weight)
	}
}

func TestIsInspectable(t *testing.T) {
	tests := map[string]bool{
		"text/html":                      true,
		"TEXT/HTML; charset=UTF-8":       true,
		"application/xhtml+xml":          true,
		"application/javascript":         true,
		"text/javascript; charset=utf-8": true,
		"image/svg+xml":                  true,
		"image/png":                      false,
		"application/json":               false,
		"":                               false,
	}
	for contentType, want := range tests {
		if got := isInspectable(contentType); got != want {
			t.Errorf("isInspectable(%q) = %v, want %v", contentType, got, want)
		}
	}
}
