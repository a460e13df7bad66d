package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Domain errors
var (
	// Input errors
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyURL     = errors.New("url cannot be empty")
	ErrInvalidURL   = errors.New("not a valid URL")

	// Scan errors
	ErrScanFailed = errors.New("scan failed")

	// Upstream errors
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	ErrMissingField   = errors.New("missing field in upstream payload")
)

// InputError marks a request rejected before any probe runs.
type InputError struct {
	Input string
	Err   error
}

func (e *InputError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid url: %v", e.Err)
	}
	return fmt.Sprintf("invalid url %q: %v", e.Input, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Is lets callers match any InputError against ErrInvalidInput.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// ProbeErrorKind classifies why a probe could not reach a verdict.
type ProbeErrorKind string

const (
	KindTimeout      ProbeErrorKind = "timeout"
	KindNetwork      ProbeErrorKind = "network"
	KindParse        ProbeErrorKind = "parse"
	KindCatastrophic ProbeErrorKind = "catastrophic"
)

// ProbeError is an absorbed probe failure. Probes turn these into warn
// results; they never abort a scan.
type ProbeError struct {
	Probe string
	Kind  ProbeErrorKind
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe %s: %v", e.Probe, e.Kind, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// NewProbeError wraps err, inferring timeout and network kinds.
func NewProbeError(probe string, err error) *ProbeError {
	return &ProbeError{Probe: probe, Kind: Classify(err), Err: err}
}

// ParseError wraps a malformed upstream payload.
func ParseError(probe string, err error) *ProbeError {
	return &ProbeError{Probe: probe, Kind: KindParse, Err: err}
}

// Classify maps an error to a probe error kind.
func Classify(err error) ProbeErrorKind {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
