package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
)

// RegistrationRecord is the subset of an RDAP domain response used by the
// domain age and privacy detectors.
type RegistrationRecord struct {
	Events   []RDAPEvent  `json:"events"`
	Entities []RDAPEntity `json:"entities"`
	Remarks  []RDAPRemark `json:"remarks"`
}

// RDAPEvent is a dated lifecycle event (registration, expiration, ...).
type RDAPEvent struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

// RDAPEntity is a registrar, registrant or contact attached to a domain.
type RDAPEntity struct {
	Roles    []string        `json:"roles"`
	VCard    json.RawMessage `json:"vcardArray,omitempty"`
	Remarks  []RDAPRemark    `json:"remarks"`
	Entities []RDAPEntity    `json:"entities"`
}

// RDAPRemark is a free-text note.
type RDAPRemark struct {
	Title       string   `json:"title"`
	Description []string `json:"description"`
}

// RegisteredAt returns the timestamp of the "registration" event.
func (r *RegistrationRecord) RegisteredAt() (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	for _, ev := range r.Events {
		if !strings.EqualFold(ev.Action, "registration") {
			continue
		}
		ts, err := time.Parse(time.RFC3339, ev.Date)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}

// TextFields returns every organization, remark and contact string found in
// the record and its nested entities.
func (r *RegistrationRecord) TextFields() []string {
	if r == nil {
		return nil
	}
	var fields []string
	fields = appendRemarks(fields, r.Remarks)
	for _, ent := range r.Entities {
		fields = appendEntity(fields, ent)
	}
	return fields
}

func appendRemarks(fields []string, remarks []RDAPRemark) []string {
	for _, rm := range remarks {
		if rm.Title != "" {
			fields = append(fields, rm.Title)
		}
		fields = append(fields, rm.Description...)
	}
	return fields
}

func appendEntity(fields []string, ent RDAPEntity) []string {
	fields = append(fields, vcardStrings(ent.VCard)...)
	fields = appendRemarks(fields, ent.Remarks)
	for _, child := range ent.Entities {
		fields = appendEntity(fields, child)
	}
	return fields
}

// contactProperties are the jCard properties that carry identity details.
var contactProperties = map[string]bool{
	"fn":    true,
	"org":   true,
	"adr":   true,
	"email": true,
}

// vcardStrings flattens a jCard ["vcard", [[name, params, type, value...], ...]]
// into the string values of its contact properties.
func vcardStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer) < 2 {
		return nil
	}
	var props [][]json.RawMessage
	if err := json.Unmarshal(outer[1], &props); err != nil {
		return nil
	}

	var out []string
	for _, prop := range props {
		if len(prop) < 4 {
			continue
		}
		var name string
		if err := json.Unmarshal(prop[0], &name); err != nil || !contactProperties[strings.ToLower(name)] {
			continue
		}
		for _, value := range prop[3:] {
			out = append(out, flattenJSONStrings(value)...)
		}
	}
	return out
}

func flattenJSONStrings(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	var out []string
	for _, item := range list {
		out = append(out, flattenJSONStrings(item)...)
	}
	return out
}

// RDAPClient looks up registration records over RDAP.
type RDAPClient struct {
	Endpoint string // Base URL, the domain is appended
	Client   *http.Client
	Cache    Cache
	CacheTTL time.Duration
}

// NewRDAPClient creates an RDAP client for endpoint.
func NewRDAPClient(endpoint string, cache Cache, ttl time.Duration) *RDAPClient {
	if endpoint == "" {
		endpoint = constants.DefaultRDAPEndpoint
	}
	return &RDAPClient{
		Endpoint: endpoint,
		Client:   NewClient(ClientConfig{Timeout: constants.RegistrationTimeout, FollowRedirects: true}),
		Cache:    cache,
		CacheTTL: ttl,
	}
}

// Lookup fetches the registration record for domain.
func (c *RDAPClient) Lookup(ctx context.Context, domain string) (*RegistrationRecord, error) {
	cacheKey := "rdap:" + domain
	if c.Cache != nil {
		if data, ok := c.Cache.Get(ctx, cacheKey); ok {
			var rec RegistrationRecord
			if err := json.Unmarshal(data, &rec); err == nil {
				return &rec, nil
			}
		}
	}

	endpoint := c.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+domain, nil)
	if err != nil {
		return nil, errs.NewProbeError(scan.CheckDomainAge, err)
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errs.NewProbeError(scan.CheckDomainAge, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errs.NewProbeError(scan.CheckDomainAge, fmt.Errorf("%w: %d", errs.ErrUpstreamStatus, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.ContentReadLimitBytes))
	if err != nil {
		return nil, errs.NewProbeError(scan.CheckDomainAge, err)
	}

	var rec RegistrationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.ParseError(scan.CheckDomainAge, err)
	}

	if c.Cache != nil && c.CacheTTL > 0 {
		c.Cache.Set(ctx, cacheKey, data, c.CacheTTL)
	}
	return &rec, nil
}

// Loader returns a RecordLoader that performs at most one lookup for domain,
// however many detectors ask for it.
func (c *RDAPClient) Loader(domain string) RecordLoader {
	var (
		once sync.Once
		rec  *RegistrationRecord
		err  error
	)
	return func(ctx context.Context) (*RegistrationRecord, error) {
		once.Do(func() {
			rec, err = c.Lookup(ctx, domain)
		})
		return rec, err
	}
}

// Domain age thresholds, in days.
var (
	NewDomainDays    = 30
	YoungDomainDays  = 90
	RecentDomainDays = 180
)

// DomainAgeProbe flags recently registered domains.
type DomainAgeProbe struct {
	now func() time.Time
}

// NewDomainAgeProbe creates a domain age detector.
func NewDomainAgeProbe() *DomainAgeProbe {
	return &DomainAgeProbe{now: time.Now}
}

func (p *DomainAgeProbe) Name() string { return scan.CheckDomainAge }

func (p *DomainAgeProbe) Timeout() time.Duration { return constants.RegistrationTimeout }

// Check classifies the domain by the age of its registration event.
func (p *DomainAgeProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	if target.Registration == nil {
		return scan.Warn(p.Name(), "Could not verify domain age", 10)
	}

	rec, err := target.Registration(ctx)
	if err != nil {
		return scan.Warn(p.Name(), "Could not verify domain age", 10).WithCause(err)
	}

	registered, ok := rec.RegisteredAt()
	if !ok {
		return scan.Warn(p.Name(), "Could not verify domain age", 10).
			WithCause(errs.ParseError(p.Name(), errs.ErrMissingField))
	}

	now := time.Now()
	if p.now != nil {
		now = p.now()
	}
	days := int(now.Sub(registered).Hours() / 24)
	if days < 0 {
		days = 0
	}

	switch {
	case days < NewDomainDays:
		return scan.Fail(p.Name(), fmt.Sprintf("Domain registered %d days ago", days), 35)
	case days < YoungDomainDays:
		return scan.Warn(p.Name(), fmt.Sprintf("Domain is only %s old", formatAge(registered, now)), 20)
	case days < RecentDomainDays:
		return scan.Warn(p.Name(), fmt.Sprintf("Domain is %s old", formatAge(registered, now)), 10)
	default:
		return scan.Pass(p.Name(), fmt.Sprintf("Domain registered %s ago", formatAge(registered, now)))
	}
}

// formatAge renders the elapsed time in whole years, falling back to months
// and then days.
func formatAge(from, to time.Time) string {
	years := to.Year() - from.Year()
	if from.AddDate(years, 0, 0).After(to) {
		years--
	}
	if years >= 1 {
		return plural(years, "year")
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if from.AddDate(0, months, 0).After(to) {
		months--
	}
	if months >= 1 {
		return plural(months, "month")
	}
	return plural(int(to.Sub(from).Hours()/24), "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
