package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/sus-cli/internal/application"
)

const (
	configName = ".sus-cli"
	envPrefix  = "SUS"
)

// configDefaults flattens application.DefaultConfig into viper keys. Every
// key must be registered here for SUS_* environment overrides to apply.
func configDefaults() map[string]interface{} {
	d := application.DefaultConfig()
	return map[string]interface{}{
		"endpoints.rdap":             d.Endpoints.RDAP,
		"endpoints.urlhaus":          d.Endpoints.URLhaus,
		"endpoints.phishtank":        d.Endpoints.PhishTank,
		"endpoints.doh":              d.Endpoints.DoH,
		"threat_intel.urlhaus_key":   d.ThreatIntel.URLhausKey,
		"threat_intel.phishtank_key": d.ThreatIntel.PhishTankKey,
		"threat_intel.rate":          d.ThreatIntel.Rate,
		"scoring.safe_max":           d.Scoring.SafeMax,
		"scoring.caution_max":        d.Scoring.CautionMax,
		"catalog.file":               d.Catalog.File,
		"cache.redis_addr":           d.Cache.Addr,
		"cache.redis_password":       d.Cache.Password,
		"cache.redis_db":             d.Cache.DB,
		"cache.ttl":                  d.Cache.TTL,
		"cache.max_entries":          d.Cache.MaxEntries,
	}
}

// loadConfig reads the config file (explicit or $HOME/.sus-cli.yaml) and the
// SUS_* environment into an application.Config. A missing default config
// file is not an error; a missing explicit one is.
func loadConfig(v *viper.Viper, file string) (application.Config, error) {
	for key, value := range configDefaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return application.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg application.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return application.Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// flagKeys maps command flags onto the config keys they override.
var flagKeys = map[string]string{
	"catalog":     "catalog.file",
	"redis-addr":  "cache.redis_addr",
	"safe-max":    "scoring.safe_max",
	"caution-max": "scoring.caution_max",
}

// bindFlags binds whichever of keys the running command defines.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

// addConfigFlags registers the flags listed in flagKeys on cmd.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("catalog", "", "Replace the built-in catalog with this YAML file")
	cmd.Flags().String("redis-addr", "", "Cache registration lookups in this Redis instance")
	cmd.Flags().Int("safe-max", 0, "Highest score still rated safe")
	cmd.Flags().Int("caution-max", 0, "Highest score still rated caution")
}
