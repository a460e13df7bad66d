package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

// TLSProbe checks that the target serves a valid certificate.
type TLSProbe struct {
	Client *http.Client
}

// NewTLSProbe creates a TLS detector with a non-following client.
func NewTLSProbe() *TLSProbe {
	return &TLSProbe{Client: NewClient(ClientConfig{Timeout: constants.TLSTimeout})}
}

func (p *TLSProbe) Name() string { return scan.CheckSSL }

func (p *TLSProbe) Timeout() time.Duration { return constants.TLSTimeout }

// Check performs a HEAD request against the target. Plain http fails outright.
func (p *TLSProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	if target.Scheme == "http" {
		return scan.Fail(p.Name(), "No encryption (HTTP)", 30)
	}

	client := p.Client
	if client == nil {
		client = NewClient(ClientConfig{Timeout: constants.TLSTimeout})
	} else if client.CheckRedirect == nil {
		client = withManualRedirects(client)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.URL, nil)
	if err != nil {
		return scan.Warn(p.Name(), "Could not establish a secure connection", 10).WithCause(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTLSError(p.Name(), err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		cert := resp.TLS.PeerCertificates[0]
		if time.Until(cert.NotAfter) < constants.TLSSoonExpiryWindow {
			return scan.Pass(p.Name(), "Valid certificate (expires soon)")
		}
	}
	return scan.Pass(p.Name(), "Valid TLS certificate")
}

// classifyTLSError maps a failed handshake to a result by its root cause.
func classifyTLSError(name string, err error) scan.CheckResult {
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) && invalid.Reason == x509.Expired {
		return scan.Fail(name, "SSL certificate has expired", 35).WithCause(err)
	}

	var (
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostname   x509.HostnameError
		systemRoot x509.SystemRootsError
	)
	switch {
	case errors.As(err, &invalid),
		errors.As(err, &unknownCA),
		errors.As(err, &hostname),
		errors.As(err, &systemRoot),
		errors.As(err, &verifyErr):
		return scan.Fail(name, "Invalid SSL certificate", 25).WithCause(err)
	}

	return scan.Warn(name, "Could not establish a secure connection", 10).
		WithCause(errs.NewProbeError(name, err))
}
