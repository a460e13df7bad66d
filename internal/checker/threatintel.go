package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

// ThreatIntelConfig configures the threat feeds.
type ThreatIntelConfig struct {
	URLhausEndpoint   string
	URLhausKey        string
	PhishTankEndpoint string
	PhishTankKey      string
	RateLimit         float64 // Outbound queries per second across both feeds (0 = unlimited)
}

// ThreatIntelProbe queries a malware-hosting feed (URLhaus) by host and a
// phishing feed (PhishTank) by URL.
type ThreatIntelProbe struct {
	cfg     ThreatIntelConfig
	Client  *http.Client
	limiter *rate.Limiter
}

// NewThreatIntelProbe creates a threat intelligence detector.
func NewThreatIntelProbe(cfg ThreatIntelConfig) *ThreatIntelProbe {
	if cfg.URLhausEndpoint == "" {
		cfg.URLhausEndpoint = constants.DefaultURLhausEndpoint
	}
	if cfg.PhishTankEndpoint == "" {
		cfg.PhishTankEndpoint = constants.DefaultPhishTankEndpoint
	}
	p := &ThreatIntelProbe{
		cfg:    cfg,
		Client: NewClient(ClientConfig{Timeout: constants.ThreatIntelTimeout, FollowRedirects: true}),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return p
}

func (p *ThreatIntelProbe) Name() string { return scan.CheckThreatIntel }

func (p *ThreatIntelProbe) Timeout() time.Duration { return constants.ThreatIntelTimeout }

// urlhausResponse is the URLhaus host lookup payload.
type urlhausResponse struct {
	QueryStatus string            `json:"query_status"`
	URLs        []json.RawMessage `json:"urls"`
}

// phishTankResponse is the PhishTank checkurl payload.
type phishTankResponse struct {
	Results struct {
		InDatabase bool `json:"in_database"`
		Valid      bool `json:"valid"`
	} `json:"results"`
}

// Check queries both feeds concurrently. A failing feed is ignored unless
// both fail.
func (p *ThreatIntelProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	var (
		malwareHits int
		malwareErr  error
		phish       *phishTankResponse
		phishErr    error
		wg          conc.WaitGroup
	)

	wg.Go(func() {
		malwareHits, malwareErr = p.queryURLhaus(ctx, target.ASCIIHost)
	})
	wg.Go(func() {
		phish, phishErr = p.queryPhishTank(ctx, target.URL)
	})
	wg.Wait()

	if malwareErr == nil && malwareHits > 0 {
		return scan.Fail(p.Name(), fmt.Sprintf("Listed on URLhaus (%d malicious URLs)", malwareHits), 50)
	}
	if phishErr == nil && phish.Results.InDatabase && phish.Results.Valid {
		return scan.Fail(p.Name(), "Listed as a verified phishing site on PhishTank", 50)
	}
	if malwareErr != nil && phishErr != nil {
		return scan.Warn(p.Name(), "Threat intelligence unavailable", 5).WithCause(malwareErr)
	}
	return scan.Pass(p.Name(), "Not found in threat intelligence feeds")
}

func (p *ThreatIntelProbe) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *ThreatIntelProbe) queryURLhaus(ctx context.Context, host string) (int, error) {
	if err := p.wait(ctx); err != nil {
		return 0, errs.NewProbeError(p.Name(), err)
	}

	form := url.Values{"host": {host}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URLhausEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, errs.NewProbeError(p.Name(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.cfg.URLhausKey != "" {
		req.Header.Set("Auth-Key", p.cfg.URLhausKey)
	}

	var payload urlhausResponse
	if err := p.doJSON(req, &payload); err != nil {
		return 0, err
	}
	if payload.QueryStatus != "ok" {
		return 0, nil
	}
	return len(payload.URLs), nil
}

func (p *ThreatIntelProbe) queryPhishTank(ctx context.Context, target string) (*phishTankResponse, error) {
	if err := p.wait(ctx); err != nil {
		return nil, errs.NewProbeError(p.Name(), err)
	}

	form := url.Values{"url": {target}, "format": {"json"}}
	if p.cfg.PhishTankKey != "" {
		form.Set("app_key", p.cfg.PhishTankKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.PhishTankEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.NewProbeError(p.Name(), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var payload phishTankResponse
	if err := p.doJSON(req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *ThreatIntelProbe) doJSON(req *http.Request, out interface{}) error {
	resp, err := p.Client.Do(req)
	if err != nil {
		return errs.NewProbeError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errs.NewProbeError(p.Name(), fmt.Errorf("%w: %d", errs.ErrUpstreamStatus, resp.StatusCode))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.ContentReadLimitBytes)).Decode(out); err != nil {
		return errs.ParseError(p.Name(), err)
	}
	return nil
}
