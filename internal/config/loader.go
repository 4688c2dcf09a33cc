package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment overrides, e.g. ASYMPTOTE_LOGGING_LEVEL.
const EnvPrefix = "ASYMPTOTE"

// Load reads configuration from the specified file path. An empty path
// yields the defaults. Environment variables override both.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows.
	d := DefaultConfig()
	v.SetDefault("mode", d.Mode)
	v.SetDefault("size_variable", d.SizeVariable)
	v.SetDefault("size_aliases", d.SizeAliases)
	v.SetDefault("preferred_method", d.PreferredMethod)
	v.SetDefault("probability.model", d.Probability.Model)
	v.SetDefault("probability.symbols", d.Probability.Symbols)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.max_age", d.Cache.MaxAge)
	v.SetDefault("server.addr", d.Server.Addr)
	return v
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
