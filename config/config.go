// Package config loads heartpredict settings from a YAML file, HEARTPREDICT_*
// environment variables and built-in defaults, in that order of precedence
// after command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const EnvPrefix = "HEARTPREDICT"

// Duration reads and prints as a Go duration string ("15s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (interface{}, error) { return d.String(), nil }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	HTTP  HTTPConfig  `yaml:"http" mapstructure:"http"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Model ModelConfig `yaml:"model" mapstructure:"model"`
}

type HTTPConfig struct {
	Port            int             `yaml:"port" mapstructure:"port"`
	ReadTimeout     Duration        `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    Duration        `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	AllowedOrigins  []string        `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig limits requests per client address. Zero RPS disables it.
type RateLimitConfig struct {
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
	Clients int     `yaml:"clients" mapstructure:"clients"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	// File enables rotated file output in addition to stderr.
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

type ModelConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Watch bool   `yaml:"watch" mapstructure:"watch"`
	// RemoteTimeout applies to remote artifacts that set no timeout.
	RemoteTimeout Duration `yaml:"remote_timeout" mapstructure:"remote_timeout"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			MaxBodyBytes:    1 << 20,
			AllowedOrigins:  []string{"*"},
			RateLimit:       RateLimitConfig{RPS: 10, Burst: 20, Clients: 1024},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Model: ModelConfig{
			Path:          filepath.Join("models", "heart_knn.json"),
			RemoteTimeout: Duration(30 * time.Second),
		},
	}
}

// SetDefaults registers every key of Default with v so that environment
// variables can override keys absent from the file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout.String())
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout.String())
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout.String())
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)
	v.SetDefault("http.rate_limit.rps", d.HTTP.RateLimit.RPS)
	v.SetDefault("http.rate_limit.burst", d.HTTP.RateLimit.Burst)
	v.SetDefault("http.rate_limit.clients", d.HTTP.RateLimit.Clients)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("model.path", d.Model.Path)
	v.SetDefault("model.watch", d.Model.Watch)
	v.SetDefault("model.remote_timeout", d.Model.RemoteTimeout.String())
}

// New returns a viper instance wired for heartpredict: defaults, env
// overrides (HEARTPREDICT_HTTP_PORT, ...) and yaml as the file type.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v, or looks for config.yaml in the working directory
// and its parent when path is empty. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("..")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolvePaths(v.ConfigFileUsed())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths makes relative file paths relative to the config file, so the
// server finds its model wherever it is started from.
func (c *Config) resolvePaths(configFile string) {
	if configFile == "" {
		return
	}
	dir := filepath.Dir(configFile)
	if c.Model.Path != "" && !filepath.IsAbs(c.Model.Path) {
		c.Model.Path = filepath.Join(dir, c.Model.Path)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("http.rate_limit.rps must not be negative"))
	}
	if c.HTTP.RateLimit.RPS > 0 && c.HTTP.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("http.rate_limit.burst must be at least 1"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q, want console or json", c.Log.Format))
	}
	if c.Model.Path == "" {
		errs = append(errs, fmt.Errorf("model.path is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WriteYAML prints the effective configuration.
func (c *Config) WriteYAML(w io.Writer) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(out)
	return err
}
