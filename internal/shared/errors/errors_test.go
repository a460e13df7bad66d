package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestInputErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("normalize: %w", &InputError{Input: "::", Err: ErrInvalidURL})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("expected InputError to match ErrInvalidInput")
	}
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	want := `invalid url "::": not a valid URL`
	var ie *InputError
	if !errors.As(err, &ie) || ie.Error() != want {
		t.Fatalf("expected %q, got %v", want, err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ProbeErrorKind
	}{
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: KindTimeout},
		{name: "plain", err: errors.New("connection refused"), want: KindNetwork},
		{name: "parse", err: ParseError("dns", errors.New("bad json")), want: KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProbeErrorString(t *testing.T) {
	err := NewProbeError("dns", context.DeadlineExceeded)
	if err.Error() != "dns probe timeout: context deadline exceeded" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}
