// Package config resolves sqlihunter settings from defaults, an optional YAML
// file, the environment and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/shlex"
	"github.com/thesavant42/sqlihunter/internal/api"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix     = "SQLIHUNTER_"
	EnvConfigPath = EnvPrefix + "CONFIG"

	DefaultDelaySeconds = 5
	DefaultDBPath       = "sqlihunter.db"
	DefaultProxyAddr    = api.DefaultProxyAddr
	DefaultScanner      = "sqlmap"
)

// Config is the resolved run configuration. It is passed explicitly to every
// pipeline stage; nothing reads settings from package state.
type Config struct {
	// Inputs, flags only
	Domain     string `yaml:"-"`
	ListFile   string `yaml:"-"`
	ConfigPath string `yaml:"-"`
	History    bool   `yaml:"-"`

	OutputRoot     string   `yaml:"output_dir" validate:"required"`
	DelaySeconds   float64  `yaml:"delay" validate:"gte=0,lte=3600"`
	TimeoutSeconds int      `yaml:"timeout" validate:"gte=1,lte=3600"`
	MaxPages       int      `yaml:"max_pages" validate:"gte=1,lte=10000"`
	UseProxy       bool     `yaml:"use_proxy"`
	ProxyAddr      string   `yaml:"proxy_addr" validate:"omitempty,hostname_port"`
	DBPath         string   `yaml:"db"`
	LogFile        string   `yaml:"log_file"`
	LogMaxSizeMB   int      `yaml:"log_max_size_mb" validate:"gte=1"`
	LogMaxBackups  int      `yaml:"log_max_backups" validate:"gte=0"`
	Verbose        bool     `yaml:"verbose"`
	ScannerBinary  string   `yaml:"scanner_binary" validate:"required"`
	ScannerArgs    []string `yaml:"scanner_args"`
	AutoRun        bool     `yaml:"auto_run"`
	NoPrompt       bool     `yaml:"no_prompt"`
	SkipStatic     bool     `yaml:"skip_static"`
	SkipTracking   bool     `yaml:"skip_tracking_only"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		OutputRoot:     ".",
		DelaySeconds:   DefaultDelaySeconds,
		TimeoutSeconds: 180,
		MaxPages:       1,
		ProxyAddr:      DefaultProxyAddr,
		DBPath:         DefaultDBPath,
		LogMaxSizeMB:   10,
		LogMaxBackups:  3,
		ScannerBinary:  DefaultScanner,
		SkipStatic:     true,
		SkipTracking:   true,
	}
}

// Delay is the pause between consecutive archive requests
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// Timeout is the per-request archive timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EffectiveProxyAddr returns the proxy address when proxying is enabled
func (c *Config) EffectiveProxyAddr() string {
	if !c.UseProxy {
		return ""
	}
	return c.ProxyAddr
}

// LoadFile merges a YAML file into cfg. Keys absent from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with SQLIHUNTER_* variables
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	str("OUTPUT", &cfg.OutputRoot)
	if v, ok := lookup(EnvPrefix + "DELAY"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDELAY: %w", EnvPrefix, err))
		} else {
			cfg.DelaySeconds = f
		}
	}
	integer("TIMEOUT", &cfg.TimeoutSeconds)
	integer("MAX_PAGES", &cfg.MaxPages)
	boolean("USE_PROXY", &cfg.UseProxy)
	str("PROXY_ADDR", &cfg.ProxyAddr)
	str("DB", &cfg.DBPath)
	str("LOG_FILE", &cfg.LogFile)
	boolean("VERBOSE", &cfg.Verbose)
	str("SCANNER", &cfg.ScannerBinary)
	if v, ok := lookup(EnvPrefix + "SCANNER_ARGS"); ok {
		args, err := splitArgs(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSCANNER_ARGS: %w", EnvPrefix, err))
		} else {
			cfg.ScannerArgs = args
		}
	}

	return errors.Join(errs...)
}

// splitArgs splits a scanner argument string with shell quoting rules,
// so --tamper "a,b c" stays one value
func splitArgs(s string) ([]string, error) {
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid scanner arguments %q: %w", s, err)
	}
	return args, nil
}

var validate = validator.New()

// Validate checks field constraints and reports them in flag terms
func (c *Config) Validate() error {
	if c.UseProxy && c.ProxyAddr == "" {
		return fmt.Errorf("invalid configuration: proxy enabled without a proxy address")
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
