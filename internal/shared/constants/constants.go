package constants

import "time"

// Per-probe timeouts.
const (
	RegistrationTimeout = 5 * time.Second
	TLSTimeout          = 5 * time.Second
	ThreatIntelTimeout  = 5 * time.Second
	DNSTimeout          = 3 * time.Second
	RedirectTimeout     = 8 * time.Second
	ContentTimeout      = 8 * time.Second
)

const (
	// MaxRedirectHops bounds redirect-chain traversal.
	MaxRedirectHops = 10
	// ContentReadLimitBytes caps how much of a page body is inspected.
	ContentReadLimitBytes = 1 << 20
	// TLSSoonExpiryWindow flags certificates that expire inside this window.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
	// MaxRequestBodyBytes caps API request bodies.
	MaxRequestBodyBytes = 1 << 20
	// UserAgent is sent with every outbound probe request.
	UserAgent = "sus-cli/1.0 (+https://github.com/khanhnv2901/sus-cli)"
)

// Default upstream endpoints.
const (
	DefaultRDAPEndpoint      = "https://rdap.org/domain/"
	DefaultURLhausEndpoint   = "https://urlhaus-api.abuse.ch/v1/host/"
	DefaultPhishTankEndpoint = "https://checkurl.phishtank.com/checkurl/"
	DefaultDoHEndpoint       = "https://cloudflare-dns.com/dns-query"
)

// Default verdict thresholds.
const (
	DefaultSafeMax    = 25
	DefaultCautionMax = 55
)
