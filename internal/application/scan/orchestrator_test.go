package scan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/sus-cli/internal/checker"
	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/scoring"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

type fakeProbe struct {
	name    string
	timeout time.Duration
	calls   int32
	check   func(ctx context.Context, target *checker.Target) scan.CheckResult
}

func (f *fakeProbe) Name() string           { return f.name }
func (f *fakeProbe) Timeout() time.Duration { return f.timeout }

func (f *fakeProbe) Check(ctx context.Context, target *checker.Target) scan.CheckResult {
	atomic.AddInt32(&f.calls, 1)
	return f.check(ctx, target)
}

type fakeLocal struct {
	name     string
	evaluate func(target *checker.Target) scan.CheckResult
}

func (f *fakeLocal) Name() string { return f.name }

func (f *fakeLocal) Evaluate(target *checker.Target) scan.CheckResult { return f.evaluate(target) }

func passProbe(name string) *fakeProbe {
	return &fakeProbe{name: name, timeout: time.Second, check: func(context.Context, *checker.Target) scan.CheckResult {
		return scan.Pass(name, "ok")
	}}
}

func passLocal(name string) *fakeLocal {
	return &fakeLocal{name: name, evaluate: func(*checker.Target) scan.CheckResult { return scan.Pass(name, "ok") }}
}

func newTestOrchestrator(t *testing.T, probes []checker.Probe, local []checker.LocalProbe, opts ...Option) *Orchestrator {
	t.Helper()
	scorer, err := scoring.New(scoring.DefaultThresholds())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewOrchestrator(probes, local, scorer, opts...)
}

func names(checks []scan.CheckResult) []string {
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = c.Name
	}
	return out
}

func TestScan_OrderAndScore(t *testing.T) {
	slow := &fakeProbe{name: scan.CheckDomainAge, timeout: time.Second, check: func(context.Context, *checker.Target) scan.CheckResult {
		time.Sleep(30 * time.Millisecond)
		return scan.Fail(scan.CheckDomainAge, "new", 35)
	}}
	probes := []checker.Probe{slow, passProbe(scan.CheckSSL), passProbe(scan.CheckThreatIntel)}
	local := []checker.LocalProbe{
		passLocal(scan.CheckURLPatterns),
		&fakeLocal{name: scan.CheckShortener, evaluate: func(*checker.Target) scan.CheckResult {
			return scan.Warn(scan.CheckShortener, "short", 15)
		}},
	}

	report, err := newTestOrchestrator(t, probes, local).Scan(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", report.URL)
	assert.Equal(t, []string{
		scan.CheckDomainAge, scan.CheckSSL, scan.CheckThreatIntel, scan.CheckURLPatterns, scan.CheckShortener,
	}, names(report.Checks))
	assert.Equal(t, 50, report.Score)
	assert.Equal(t, scan.VerdictCaution, report.Verdict)
}

func TestScan_InvalidInputRunsNothing(t *testing.T) {
	probe := passProbe(scan.CheckDNS)
	o := newTestOrchestrator(t, []checker.Probe{probe}, nil)

	for _, input := range []string{"", "ftp://example.com", "http://"} {
		report, err := o.Scan(context.Background(), input)
		assert.Nil(t, report)
		assert.True(t, errors.Is(err, errs.ErrInvalidInput), "input %q: %v", input, err)
	}
	assert.Zero(t, atomic.LoadInt32(&probe.calls))
}

func TestScan_ProbePanicDegrades(t *testing.T) {
	boom := &fakeProbe{name: scan.CheckContent, timeout: time.Second, check: func(context.Context, *checker.Target) scan.CheckResult {
		panic("parser exploded")
	}}
	localBoom := &fakeLocal{name: scan.CheckHomograph, evaluate: func(*checker.Target) scan.CheckResult {
		var m map[string]int
		m["x"]++
		return scan.CheckResult{}
	}}

	report, err := newTestOrchestrator(t,
		[]checker.Probe{passProbe(scan.CheckDNS), boom},
		[]checker.LocalProbe{localBoom, passLocal(scan.CheckShortener)},
	).Scan(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Len(t, report.Checks, 4)

	for _, name := range []string{scan.CheckContent, scan.CheckHomograph} {
		c, ok := report.Check(name)
		require.True(t, ok)
		assert.Equal(t, scan.StatusWarn, c.Status, name)
		assert.Equal(t, 5, c.Weight, name)

		var pe *errs.ProbeError
		require.True(t, errors.As(c.Cause, &pe), name)
		assert.Equal(t, errs.KindCatastrophic, pe.Kind)
	}
	assert.Equal(t, 10, report.Score)
}

func TestScan_HungProbeDegrades(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	hung := &fakeProbe{name: scan.CheckRedirects, timeout: 20 * time.Millisecond, check: func(context.Context, *checker.Target) scan.CheckResult {
		<-release // ignores its context
		return scan.Pass(scan.CheckRedirects, "late")
	}}

	start := time.Now()
	report, err := newTestOrchestrator(t, []checker.Probe{hung, passProbe(scan.CheckDNS)}, nil, WithGrace(20*time.Millisecond)).
		Scan(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	c, ok := report.Check(scan.CheckRedirects)
	require.True(t, ok)
	assert.Equal(t, scan.StatusWarn, c.Status)
	assert.Equal(t, "Check timed out", c.Detail)
	assert.Equal(t, errs.KindTimeout, errs.Classify(c.Cause))
}

func TestScan_ProbeDeadline(t *testing.T) {
	var deadline time.Duration
	probe := &fakeProbe{name: scan.CheckDNS, timeout: 50 * time.Millisecond, check: func(ctx context.Context, _ *checker.Target) scan.CheckResult {
		d, ok := ctx.Deadline()
		if ok {
			deadline = time.Until(d)
		}
		<-ctx.Done()
		return scan.Warn(scan.CheckDNS, "DNS lookup failed", 10).WithCause(errs.NewProbeError(scan.CheckDNS, ctx.Err()))
	}}

	report, err := newTestOrchestrator(t, []checker.Probe{probe}, nil).Scan(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Greater(t, deadline, time.Duration(0))
	assert.LessOrEqual(t, deadline, 50*time.Millisecond)
	c, _ := report.Check(scan.CheckDNS)
	assert.Equal(t, "DNS lookup failed", c.Detail, "a probe that honours its deadline keeps its own result")
	assert.Equal(t, 10, c.Weight)
}

func TestScan_IgnoresCallerCancellation(t *testing.T) {
	probe := &fakeProbe{name: scan.CheckSSL, timeout: time.Second, check: func(ctx context.Context, _ *checker.Target) scan.CheckResult {
		if ctx.Err() != nil {
			return scan.Fail(scan.CheckSSL, "cancelled", 99)
		}
		return scan.Pass(scan.CheckSSL, "ok")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestOrchestrator(t, []checker.Probe{probe}, nil).Scan(ctx, "example.com")
	require.NoError(t, err)
	c, _ := report.Check(scan.CheckSSL)
	assert.Equal(t, scan.StatusPass, c.Status)
}

type countingSource struct {
	loaders int32
	lookups int32
	domain  string
}

func (s *countingSource) Loader(domain string) checker.RecordLoader {
	atomic.AddInt32(&s.loaders, 1)
	s.domain = domain
	return func(context.Context) (*checker.RegistrationRecord, error) {
		atomic.AddInt32(&s.lookups, 1)
		return &checker.RegistrationRecord{}, nil
	}
}

func TestScan_WiresRegistrationLoader(t *testing.T) {
	src := &countingSource{}
	usesRecord := func(name string) *fakeProbe {
		return &fakeProbe{name: name, timeout: time.Second, check: func(ctx context.Context, target *checker.Target) scan.CheckResult {
			if target.Registration == nil {
				return scan.Fail(name, "no loader", 1)
			}
			_, _ = target.Registration(ctx)
			return scan.Pass(name, "ok")
		}}
	}

	report, err := newTestOrchestrator(t,
		[]checker.Probe{usesRecord(scan.CheckDomainAge), usesRecord(scan.CheckWhoisPrivacy)},
		nil,
		WithRecordSource(src),
	).Scan(context.Background(), "https://login.example.co.uk/path")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.loaders))
	assert.Equal(t, "example.co.uk", src.domain)
	for _, c := range report.Checks {
		assert.Equal(t, scan.StatusPass, c.Status, c.Name)
	}
}

func TestScan_Deterministic(t *testing.T) {
	probes := []checker.Probe{
		&fakeProbe{name: scan.CheckThreatIntel, timeout: time.Second, check: func(context.Context, *checker.Target) scan.CheckResult {
			return scan.Fail(scan.CheckThreatIntel, "listed", 50)
		}},
		&fakeProbe{name: scan.CheckDNS, timeout: time.Second, check: func(context.Context, *checker.Target) scan.CheckResult {
			return scan.Fail(scan.CheckDNS, "private", 35)
		}},
	}
	o := newTestOrchestrator(t, probes, []checker.LocalProbe{passLocal(scan.CheckHomograph)})

	first, err := o.Scan(context.Background(), "example.com")
	require.NoError(t, err)
	second, err := o.Scan(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 100, first.Score)
}
