package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	scanapp "github.com/khanhnv2901/sus-cli/internal/application/scan"
	"github.com/khanhnv2901/sus-cli/internal/checker"
	"github.com/khanhnv2901/sus-cli/internal/infrastructure/cache"
	"github.com/khanhnv2901/sus-cli/internal/scoring"
	"github.com/khanhnv2901/sus-cli/internal/shared/constants"
)

// Config is the runtime configuration of the scanner.
type Config struct {
	Endpoints   EndpointsConfig    `mapstructure:"endpoints"`
	ThreatIntel ThreatIntelConfig  `mapstructure:"threat_intel"`
	Scoring     scoring.Thresholds `mapstructure:"scoring"`
	Catalog     CatalogConfig      `mapstructure:"catalog"`
	Cache       CacheConfig        `mapstructure:"cache"`
}

// EndpointsConfig overrides upstream service locations.
type EndpointsConfig struct {
	RDAP      string `mapstructure:"rdap"`
	URLhaus   string `mapstructure:"urlhaus"`
	PhishTank string `mapstructure:"phishtank"`
	DoH       string `mapstructure:"doh"`
}

// ThreatIntelConfig holds feed credentials and outbound pacing.
type ThreatIntelConfig struct {
	URLhausKey   string  `mapstructure:"urlhaus_key"`
	PhishTankKey string  `mapstructure:"phishtank_key"`
	Rate         float64 `mapstructure:"rate"`
}

// CatalogConfig points at an optional replacement catalog.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// CacheConfig selects where registration records are cached.
type CacheConfig struct {
	cache.RedisConfig `mapstructure:",squash"`
	TTL               time.Duration `mapstructure:"ttl"`
	MaxEntries        int           `mapstructure:"max_entries"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Endpoints: EndpointsConfig{
			RDAP:      constants.DefaultRDAPEndpoint,
			URLhaus:   constants.DefaultURLhausEndpoint,
			PhishTank: constants.DefaultPhishTankEndpoint,
			DoH:       constants.DefaultDoHEndpoint,
		},
		ThreatIntel: ThreatIntelConfig{Rate: 5},
		Scoring:     scoring.DefaultThresholds(),
		Cache:       CacheConfig{TTL: 6 * time.Hour, MaxEntries: 1024},
	}
}

// Container holds the wired scanner and the resources it owns.
// This is a simple dependency injection container
type Container struct {
	Catalog *checker.Catalog
	Cache   checker.Cache
	Records *checker.RDAPClient
	Scorer  *scoring.Scorer
	Scanner *scanapp.Orchestrator

	redis *cache.Redis
}

// NewContainer builds every detector and the orchestrator from cfg.
func NewContainer(ctx context.Context, cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog := checker.DefaultCatalog()
	if cfg.Catalog.File != "" {
		loaded, err := checker.LoadCatalogFile(cfg.Catalog.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		catalog = loaded
	}

	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring thresholds: %w", err)
	}

	c := &Container{Catalog: catalog, Scorer: scorer}

	if cfg.Cache.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisConfig, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", zap.String("addr", cfg.Cache.Addr), zap.Error(err))
		} else {
			c.redis = rc
			c.Cache = rc
		}
	}
	if c.Cache == nil {
		c.Cache = cache.NewMemory(cfg.Cache.MaxEntries)
	}

	c.Records = checker.NewRDAPClient(cfg.Endpoints.RDAP, c.Cache, cfg.Cache.TTL)

	probes := []checker.Probe{
		checker.NewDomainAgeProbe(),
		checker.NewTLSProbe(),
		checker.NewThreatIntelProbe(checker.ThreatIntelConfig{
			URLhausEndpoint:   cfg.Endpoints.URLhaus,
			URLhausKey:        cfg.ThreatIntel.URLhausKey,
			PhishTankEndpoint: cfg.Endpoints.PhishTank,
			PhishTankKey:      cfg.ThreatIntel.PhishTankKey,
			RateLimit:         cfg.ThreatIntel.Rate,
		}),
		checker.NewDNSProbe(cfg.Endpoints.DoH),
		checker.NewRedirectProbe(),
		checker.NewPrivacyProbe(catalog),
		checker.NewContentProbe(catalog),
	}
	local := []checker.LocalProbe{
		checker.NewURLPatternProbe(catalog),
		checker.NewHomographProbe(),
		checker.NewTyposquatProbe(catalog),
		checker.NewShortenerProbe(catalog),
	}

	c.Scanner = scanapp.NewOrchestrator(probes, local, scorer,
		scanapp.WithLogger(logger.Named("scan")),
		scanapp.WithRecordSource(c.Records),
	)
	return c, nil
}

// Ready reports whether optional backing services are reachable.
func (c *Container) Ready(ctx context.Context) error {
	if c.redis != nil {
		return c.redis.Ping(ctx)
	}
	return nil
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
