package checker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
)

func TestNewClient_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != constants.UserAgent {
			t.Errorf("User-Agent = %q, want %q", got, constants.UserAgent)
		}
		if got := r.Header.Get("X-Probe"); got != "sus" {
			t.Errorf("X-Probe = %q, want sus", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		Timeout:   constants.DNSTimeout,
		Transport: srv.Client().Transport,
		Headers:   http.Header{"X-Probe": {"sus"}},
	})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
}

func TestNewClient_Redirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	manual := NewClient(ClientConfig{Timeout: constants.DNSTimeout})
	resp, err := manual.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("manual client status = %d, want 301", resp.StatusCode)
	}

	following := NewClient(ClientConfig{Timeout: constants.DNSTimeout, FollowRedirects: true})
	resp, err = following.Get(srv.URL + "/start")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("following client status = %d, want 200", resp.StatusCode)
	}
}

func TestIsRedirectStatus(t *testing.T) {
	for _, code := range []int{301, 302, 303, 307, 308} {
		if !isRedirectStatus(code) {
			t.Errorf("isRedirectStatus(%d) = false", code)
		}
	}
	for _, code := range []int{200, 304, 404} {
		if isRedirectStatus(code) {
			t.Errorf("isRedirectStatus(%d) = true", code)
		}
	}
}
