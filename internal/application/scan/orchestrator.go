package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/khanhnv2901/sus-cli/internal/checker"
	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/scoring"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

const (
	// degradedWeight is charged for a probe that timed out or crashed.
	degradedWeight = 5

	// DefaultGrace is how long a probe may overrun its own timeout before
	// the orchestrator stops waiting for it.
	DefaultGrace = 500 * time.Millisecond

	defaultProbeTimeout = 5 * time.Second
)

// RecordSource hands out per-scan registration record loaders.
type RecordSource interface {
	Loader(domain string) checker.RecordLoader
}

// outcome is the tagged result of one probe task.
type outcome struct {
	result   scan.CheckResult
	degraded bool
}

// Orchestrator runs every detector against a URL and scores the results.
type Orchestrator struct {
	probes  []checker.Probe
	local   []checker.LocalProbe
	scorer  *scoring.Scorer
	records RecordSource
	logger  *zap.Logger
	grace   time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for degraded probes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecordSource wires the registration lookup shared by the domain age
// and privacy detectors.
func WithRecordSource(src RecordSource) Option {
	return func(o *Orchestrator) { o.records = src }
}

// WithGrace overrides DefaultGrace.
func WithGrace(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.grace = d
		}
	}
}

// NewOrchestrator creates an orchestrator. Results are reported in the
// order the probes are given, network probes first.
func NewOrchestrator(probes []checker.Probe, local []checker.LocalProbe, scorer *scoring.Scorer, opts ...Option) *Orchestrator {
	if scorer == nil {
		scorer, _ = scoring.New(scoring.DefaultThresholds())
	}
	o := &Orchestrator{
		probes: probes,
		local:  local,
		scorer: scorer,
		logger: zap.NewNop(),
		grace:  DefaultGrace,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Detectors returns the detector names in report order.
func (o *Orchestrator) Detectors() []string {
	out := make([]string, 0, len(o.probes)+len(o.local))
	for _, p := range o.probes {
		out = append(out, p.Name())
	}
	for _, p := range o.local {
		out = append(out, p.Name())
	}
	return out
}

// Scan normalizes raw, runs all probes and returns the scored report.
//
// Invalid input is rejected with an InputError before any probe runs. Once
// started, a scan ignores cancellation of ctx and always yields a complete
// report; only an internal fault returns ErrScanFailed.
func (o *Orchestrator) Scan(ctx context.Context, raw string) (report *scan.Report, err error) {
	target, err := checker.Normalize(raw)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("scan aborted",
				zap.String("url", target.URL),
				zap.Any("panic", r),
				zap.Stack("stack"))
			report, err = nil, fmt.Errorf("%w: %v", errs.ErrScanFailed, r)
		}
	}()

	ctx = context.WithoutCancel(ctx)
	if o.records != nil {
		target.Registration = o.records.Loader(target.RegistrableDomain())
	}

	started := time.Now()
	outcomes := make([]outcome, len(o.probes))
	var wg conc.WaitGroup
	for i, probe := range o.probes {
		i, probe := i, probe
		wg.Go(func() {
			outcomes[i] = o.runProbe(ctx, probe, target)
		})
	}

	localResults := make([]scan.CheckResult, len(o.local))
	for i, probe := range o.local {
		localResults[i] = o.evaluate(probe, target)
	}
	wg.Wait()

	checks := make([]scan.CheckResult, 0, len(o.probes)+len(o.local))
	degraded := 0
	for _, out := range outcomes {
		if out.degraded {
			degraded++
		}
		checks = append(checks, out.result)
	}
	checks = append(checks, localResults...)
	o.logCauses(target, checks)

	score, verdict := o.scorer.Score(checks)
	o.logger.Debug("scan complete",
		zap.String("url", target.URL),
		zap.Int("score", score),
		zap.String("verdict", string(verdict)),
		zap.Int("degraded", degraded),
		zap.Duration("elapsed", time.Since(started)))

	return &scan.Report{
		URL:     target.URL,
		Score:   score,
		Verdict: verdict,
		Checks:  checks,
	}, nil
}

// runProbe executes a network probe under its own deadline. A probe that
// panics, or overruns its deadline by more than the grace period, is
// degraded to a warn result.
func (o *Orchestrator) runProbe(ctx context.Context, probe checker.Probe, target *checker.Target) outcome {
	name := probe.Name()
	timeout := probe.Timeout()
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		var (
			catcher panics.Catcher
			result  scan.CheckResult
		)
		catcher.Try(func() { result = probe.Check(probeCtx, target) })
		if rec := catcher.Recovered(); rec != nil {
			done <- degrade(name, errs.KindCatastrophic, rec.AsError())
			return
		}
		if result.Name == "" {
			result.Name = name
		}
		done <- outcome{result: result}
	}()

	timer := time.NewTimer(timeout + o.grace)
	defer timer.Stop()

	select {
	case out := <-done:
		return out
	case <-timer.C:
		return degrade(name, errs.KindTimeout, fmt.Errorf("no result after %s: %w", timeout, context.DeadlineExceeded))
	}
}

// evaluate runs a local probe, converting a panic into a warn result.
func (o *Orchestrator) evaluate(probe checker.LocalProbe, target *checker.Target) scan.CheckResult {
	var (
		catcher panics.Catcher
		result  scan.CheckResult
	)
	catcher.Try(func() { result = probe.Evaluate(target) })
	if rec := catcher.Recovered(); rec != nil {
		return degrade(probe.Name(), errs.KindCatastrophic, rec.AsError()).result
	}
	if result.Name == "" {
		result.Name = probe.Name()
	}
	return result
}

func degrade(name string, kind errs.ProbeErrorKind, err error) outcome {
	detail := "Check could not complete"
	if kind == errs.KindTimeout {
		detail = "Check timed out"
	}
	cause := &errs.ProbeError{Probe: name, Kind: kind, Err: err}
	return outcome{
		result:   scan.Warn(name, detail, degradedWeight).WithCause(cause),
		degraded: true,
	}
}

func (o *Orchestrator) logCauses(target *checker.Target, checks []scan.CheckResult) {
	for _, c := range checks {
		if c.Cause == nil {
			continue
		}
		fields := []zap.Field{
			zap.String("url", target.URL),
			zap.String("probe", c.Name),
			zap.String("status", string(c.Status)),
			zap.String("kind", string(errs.Classify(c.Cause))),
			zap.Error(c.Cause),
		}
		var pe *errs.ProbeError
		if errors.As(c.Cause, &pe) && pe.Kind == errs.KindCatastrophic {
			o.logger.Error("probe crashed", fields...)
			continue
		}
		o.logger.Warn("probe degraded", fields...)
	}
}
