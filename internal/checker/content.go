package checker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
	errs "github.com/khanhnv2901/sus-cli/internal/shared/errors"
	"golang.org/x/net/html/charset"
)

type signatureSeverity int

const (
	severityMedium signatureSeverity = iota + 1
	severityHigh
	severityCritical
)

const (
	// extraSignatureWeight is added for every matched signature beyond the
	// most severe one.
	extraSignatureWeight = 5
	maxContentWeight     = 50
	// maxExternalScripts is the number of third-party scripts tolerated.
	maxExternalScripts = 10
)

// page is the parsed response handed to content signatures.
type page struct {
	doc  *goquery.Document
	text string
	base *url.URL
}

// contentSignature is one entry of the content rule table.
type contentSignature struct {
	name     string
	severity signatureSeverity
	weight   int
	reason   string
	match    func(p *page) bool
}

var (
	evalPattern          = regexp.MustCompile(`\beval\s*\(`)
	documentWritePattern = regexp.MustCompile(`document\.write(?:ln)?\s*\(`)
	base64Pattern        = regexp.MustCompile(`\b(?:atob|btoa)\s*\(`)
	charCodePattern      = regexp.MustCompile(`String\.fromCharCode\s*\(`)
	scriptRedirectRe     = regexp.MustCompile(`(?i)(?:(?:window|document|top|self)\.)?location(?:\.href)?\s*=\s*['"]|location\.(?:replace|assign)\s*\(`)
)

// contentSignatures returns the content rule table. Legitimacy markers come
// from the catalog.
func contentSignatures(c *Catalog) []contentSignature {
	return []contentSignature{
		{
			name: "password_form", severity: severityCritical, weight: 40,
			reason: "Password field without terms or privacy links",
			match: func(p *page) bool {
				return hasPasswordInput(p.doc) && !hasLegitimacyMarkers(p.doc, c.LegitimacyMarkers)
			},
		},
		{
			name: "eval", severity: severityHigh, weight: 15,
			reason: "Dynamic code evaluation (eval)",
			match:  func(p *page) bool { return evalPattern.MatchString(p.text) },
		},
		{
			name: "document_write", severity: severityMedium, weight: 10,
			reason: "Direct document rewrite (document.write)",
			match:  func(p *page) bool { return documentWritePattern.MatchString(p.text) },
		},
		{
			name: "base64", severity: severityMedium, weight: 10,
			reason: "Base64 encoding in script (atob/btoa)",
			match:  func(p *page) bool { return base64Pattern.MatchString(p.text) },
		},
		{
			name: "char_codes", severity: severityHigh, weight: 15,
			reason: "String rebuilt from character codes",
			match:  func(p *page) bool { return charCodePattern.MatchString(p.text) },
		},
		{
			name: "hidden_iframe", severity: severityHigh, weight: 20,
			reason: "Invisible iframe",
			match:  func(p *page) bool { return hasHiddenIframe(p.doc) },
		},
		{
			name: "script_redirect", severity: severityMedium, weight: 10,
			reason: "Script-driven redirect",
			match:  func(p *page) bool { return scriptRedirectRe.MatchString(p.text) },
		},
		{
			name: "external_scripts", severity: severityMedium, weight: 5,
			reason: fmt.Sprintf("More than %d external scripts", maxExternalScripts),
			match:  func(p *page) bool { return countExternalScripts(p.doc, p.base) > maxExternalScripts },
		},
	}
}

// ContentProbe fetches the landing page and scans it for phishing and
// obfuscation signatures.
type ContentProbe struct {
	Client     *http.Client
	ReadLimit  int64
	signatures []contentSignature
}

// NewContentProbe creates a content detector.
func NewContentProbe(c *Catalog) *ContentProbe {
	if c == nil {
		c = DefaultCatalog()
	}
	return &ContentProbe{
		Client:     NewClient(ClientConfig{Timeout: constants.ContentTimeout, FollowRedirects: true}),
		ReadLimit:  constants.ContentReadLimitBytes,
		signatures: contentSignatures(c),
	}
}

func (p *ContentProbe) Name() string { return scan.CheckContent }

func (p *ContentProbe) Timeout() time.Duration { return constants.ContentTimeout }

// Check fetches the page. Non-markup responses pass without their body
// being read; fetch and parse failures degrade to warn.
func (p *ContentProbe) Check(ctx context.Context, target *Target) scan.CheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return scan.Warn(p.Name(), "Could not inspect page content", 5).WithCause(err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := p.Client.Do(req)
	if err != nil {
		return scan.Warn(p.Name(), "Could not inspect page content", 5).WithCause(errs.NewProbeError(p.Name(), err))
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !isInspectable(contentType) {
		return scan.Pass(p.Name(), fmt.Sprintf("Content not inspected (%s)", mediaType(contentType)))
	}

	limit := p.ReadLimit
	if limit <= 0 {
		limit = constants.ContentReadLimitBytes
	}
	reader, err := charset.NewReader(io.LimitReader(resp.Body, limit), contentType)
	if err != nil {
		return scan.Warn(p.Name(), "Could not decode page content", 5).WithCause(errs.ParseError(p.Name(), err))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return scan.Warn(p.Name(), "Could not inspect page content", 5).WithCause(errs.NewProbeError(p.Name(), err))
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return scan.Warn(p.Name(), "Could not parse page content", 5).WithCause(errs.ParseError(p.Name(), err))
	}

	base := resp.Request.URL
	if base == nil {
		base = target.ParsedURL()
	}
	pg := &page{doc: doc, text: string(body), base: base}

	var matched []contentSignature
	for _, sig := range p.signatures {
		if sig.match(pg) {
			matched = append(matched, sig)
		}
	}
	return aggregateSignatures(p.Name(), matched)
}

// aggregateSignatures escalates to the most severe matched signature and
// adds a small increment for every additional one.
func aggregateSignatures(name string, matched []contentSignature) scan.CheckResult {
	if len(matched) == 0 {
		return scan.Pass(name, "No suspicious content patterns found")
	}

	top := matched[0]
	reasons := make([]string, 0, len(matched))
	for _, sig := range matched {
		reasons = append(reasons, sig.reason)
		if sig.severity > top.severity || (sig.severity == top.severity && sig.weight > top.weight) {
			top = sig
		}
	}

	weight := top.weight + extraSignatureWeight*(len(matched)-1)
	if weight > maxContentWeight {
		weight = maxContentWeight
	}

	detail := top.reason
	if len(matched) > 1 {
		detail = fmt.Sprintf("%d suspicious patterns: %s", len(matched), strings.Join(reasons, "; "))
	}

	if top.severity == severityCritical || len(matched) >= 3 {
		return scan.Fail(name, detail, weight)
	}
	return scan.Warn(name, detail, weight)
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "no content type"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

// isInspectable reports whether the content type can carry markup or script.
func isInspectable(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt := strings.ToLower(mediaType(contentType))
	switch {
	case mt == "text/html", mt == "application/xhtml+xml":
		return true
	case strings.HasSuffix(mt, "javascript"), strings.HasSuffix(mt, "ecmascript"):
		return true
	case mt == "text/xml", mt == "application/xml", mt == "image/svg+xml":
		return true
	}
	return false
}

func hasPasswordInput(doc *goquery.Document) bool {
	found := false
	doc.Find("input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "password") {
			found = true
			return false
		}
		return true
	})
	return found
}

// hasLegitimacyMarkers looks for terms/privacy links or declared branding.
func hasLegitimacyMarkers(doc *goquery.Document, markers []string) bool {
	if doc.Find(`meta[property="og:site_name"], meta[name="application-name"]`).Length() > 0 {
		return true
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text() + " " + s.AttrOr("href", ""))
		for _, marker := range markers {
			if strings.Contains(text, marker) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func hasHiddenIframe(doc *goquery.Document) bool {
	found := false
	doc.Find("iframe").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if isZeroDimension(s.AttrOr("width", "")) || isZeroDimension(s.AttrOr("height", "")) {
			found = true
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		for _, rule := range []string{"display:none", "visibility:hidden", "width:0", "height:0"} {
			if strings.Contains(style, rule) {
				found = true
				return false
			}
		}
		if _, hidden := s.Attr("hidden"); hidden {
			found = true
			return false
		}
		return true
	})
	return found
}

func isZeroDimension(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "0" || v == "0px"
}

// countExternalScripts counts script tags loaded from a host other than the
// page's own.
func countExternalScripts(doc *goquery.Document, base *url.URL) int {
	if base == nil {
		return 0
	}
	baseHost := strings.ToLower(base.Hostname())
	count := 0
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		resolved, err := base.Parse(src)
		if err != nil || resolved.Hostname() == "" {
			return
		}
		if strings.ToLower(resolved.Hostname()) != baseHost {
			count++
		}
	})
	return count
}
