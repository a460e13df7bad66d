package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

const dnsTypeA = 1

// DNSProbe resolves the target through a DNS-over-HTTPS resolver
type DNSProbe struct {
	Endpoint string
	Client   *http.Client
}

// NewDNSProbe creates a DNS detector using the JSON DoH endpoint.
func NewDNSProbe(endpoint string) *DNSProbe {
	if endpoint == "" {
		endpoint = constants.DefaultDoHEndpoint
	}
	return &DNSProbe{
		Endpoint: endpoint,
		Client:   NewClient(ClientConfig{Timeout: constants.DNSTimeout, FollowRedirects: true}),
	}
}

// dohResponse is the application/dns-json answer format.
type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

func (d *DNSProbe) Name() string { return scan.CheckDNS }

func (d *DNSProbe) Timeout() time.Duration { return constants.DNSTimeout }

// Check performs an A record lookup on the target host
func (d *DNSProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	if ip := net.ParseIP(target.ASCIIHost); ip != nil {
		return classifyAddresses(d.Name(), []net.IP{ip})
	}

	addrs, err := d.lookupA(ctx, target.ASCIIHost)
	if err != nil {
		return scan.Warn(d.Name(), "DNS lookup failed", 10).WithCause(err)
	}
	if len(addrs) == 0 {
		return scan.Fail(d.Name(), "Domain does not resolve", 40)
	}
	return classifyAddresses(d.Name(), addrs)
}

func classifyAddresses(name string, addrs []net.IP) scan.CheckResult {
	for _, ip := range addrs {
		if isPrivateIPv4(ip) {
			return scan.Fail(name, fmt.Sprintf("Resolves to private IP (%s)", ip), 35)
		}
	}
	if len(addrs) == 1 {
		return scan.Pass(name, "Resolves to 1 address")
	}
	return scan.Pass(name, fmt.Sprintf("Resolves to %d addresses", len(addrs)))
}

// isPrivateIPv4 reports whether ip falls in 10/8, 172.16/12 or 192.168/16.
func isPrivateIPv4(ip net.IP) bool {
	v4 := ip.To4()
	return v4 != nil && v4.IsPrivate()
}

func (d *DNSProbe) lookupA(ctx context.Context, host string) ([]net.IP, error) {
	q := url.Values{"name": {host}, "type": {"A"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errs.NewProbeError(d.Name(), err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, errs.NewProbeError(d.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errs.NewProbeError(d.Name(), fmt.Errorf("%w: %d", errs.ErrUpstreamStatus, resp.StatusCode))
	}

	var payload dohResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.ContentReadLimitBytes)).Decode(&payload); err != nil {
		return nil, errs.ParseError(d.Name(), err)
	}

	addrs := make([]net.IP, 0, len(payload.Answer))
	for _, ans := range payload.Answer {
		if ans.Type != dnsTypeA {
			continue
		}
		if ip := net.ParseIP(ans.Data); ip != nil {
			addrs = append(addrs, ip)
		}
	}
	return addrs, nil
}
