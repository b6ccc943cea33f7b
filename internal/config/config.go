// Package config loads the flowtrace CLI configuration from a YAML file, a
// .env file and FLOWTRACE_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment variable read.
	EnvPrefix = "FLOWTRACE_"

	DefaultLogDir         = "logs"
	DefaultTruncateBudget = 1200
	DefaultLogFormat      = "console"
)

// LogFormats are the valid values of Config.LogFormat.
var LogFormats = []string{"console", "json", "std"} //nolint:gochecknoglobals

// Config is the flowtrace configuration.
type Config struct {
	// LogDir is where traces are written to and listed from.
	LogDir string `yaml:"log_dir"`
	// TruncateBudget is the character budget of each recorded value.
	TruncateBudget int `yaml:"truncate_budget"`
	// LogLevel is the logr verbosity to log up to.
	LogLevel int `yaml:"log_level"`
	// LogFormat is one of LogFormats.
	LogFormat string `yaml:"log_format"`
	// Enabled turns tracing on or off. Defaults to true.
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether tracing is enabled.
func (c *Config) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the YAML file at path, if path is not empty, and then applies
// overrides from envFile, if it exists, and the process environment.
func Load(path, envFile string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	env := map[string]string{}
	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return parse(data, env)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) { return parse(data, nil) }

func parse(data []byte, env map[string]string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides fields with the FLOWTRACE_* variables in env.
func (c *Config) applyEnv(env map[string]string) error {
	if v, ok := env[EnvPrefix+"LOG_DIR"]; ok {
		c.LogDir = v
	}
	if v, ok := env[EnvPrefix+"LOG_FORMAT"]; ok {
		c.LogFormat = v
	}
	for key, dst := range map[string]*int{
		"TRUNCATE_BUDGET": &c.TruncateBudget,
		"LOG_LEVEL":       &c.LogLevel,
	} {
		v, ok := env[EnvPrefix+key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}
	if v, ok := env[EnvPrefix+"ENABLED"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sENABLED: %w", EnvPrefix, err)
		}
		c.Enabled = &b
	}
	return nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.TruncateBudget == 0 {
		c.TruncateBudget = DefaultTruncateBudget
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// validate checks that all fields are consistent.
func (c *Config) validate() error {
	var errs []string
	if c.TruncateBudget < 0 {
		errs = append(errs, "truncate_budget must not be negative")
	}
	if c.LogLevel < 0 || c.LogLevel > 127 {
		errs = append(errs, "log_level must be between 0 and 127")
	}
	valid := false
	for _, f := range LogFormats {
		if c.LogFormat == f {
			valid = true
		}
	}
	if !valid {
		errs = append(errs, fmt.Sprintf("log_format must be one of %s", strings.Join(LogFormats, ", ")))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
