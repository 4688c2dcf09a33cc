// Package config provides the configuration structures and loading for asymptote.
package config

import (
	"time"

	"github.com/gnolang/asymptote/internal/ast"
)

// DefaultFileName is the configuration file looked up in the working directory.
const DefaultFileName = ".asymptote.yaml"

// Config represents the complete application configuration.
type Config struct {
	Mode            string            `yaml:"mode" mapstructure:"mode"` // worst, best, avg or all
	SizeVariable    string            `yaml:"size_variable" mapstructure:"size_variable"`
	SizeAliases     []string          `yaml:"size_aliases" mapstructure:"size_aliases"`
	PreferredMethod string            `yaml:"preferred_method" mapstructure:"preferred_method"` // auto, master, iteration, tree, characteristic
	Probability     ProbabilityConfig `yaml:"probability" mapstructure:"probability"`
	Logging         LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Cache           CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server          ServerConfig      `yaml:"server" mapstructure:"server"`
}

// ProbabilityConfig selects the average-case branch model.
type ProbabilityConfig struct {
	Model   string   `yaml:"model" mapstructure:"model"` // uniform or symbolic
	Symbols []string `yaml:"symbols,omitempty" mapstructure:"symbols"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// CacheConfig controls the on-disk result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	MaxAge  time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Mode:            "worst",
		SizeVariable:    "n",
		SizeAliases:     append([]string(nil), ast.DefaultSizeAliases...),
		PreferredMethod: "auto",
		Probability: ProbabilityConfig{
			Model: "uniform",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".asymptote-cache",
			MaxAge:  24 * time.Hour,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
