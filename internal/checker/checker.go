package checker

import (
	"context"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

// Probe is implemented by detectors that reach out to the network.
type Probe interface {
	// Check runs the detector against a single target. It must always return
	// a result; upstream failures are reported as warn results.
	Check(ctx context.Context, target *Target) scan.CheckResult

	// Name returns the detector identity (e.g. "dns", "ssl").
	Name() string

	// Timeout bounds a single Check call.
	Timeout() time.Duration
}

// LocalProbe is implemented by pure detectors that need no I/O.
type LocalProbe interface {
	Evaluate(target *Target) scan.CheckResult
	Name() string
}

// RecordLoader returns the registration record for the scanned domain.
type RecordLoader func(ctx context.Context) (*RegistrationRecord, error)

// Cache stores raw upstream payloads between scans.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
