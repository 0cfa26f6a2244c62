package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SCHEDULER"

// Keys understood by Load. Each maps to SCHEDULER_<KEY in upper case>.
const (
	KeySQLitePath                = "sqlite_path"
	KeyDirectoryURL              = "directory_url"
	KeyDirectoryTimeout          = "directory_timeout"
	KeyDirectoryRefreshInterval  = "directory_refresh_interval"
	KeyDirectoryFailureThreshold = "directory_failure_threshold"
	KeyDirectoryOpenTimeout      = "directory_open_timeout"
	KeyDirectoryRateLimit        = "directory_rate_limit"
	KeyNotificationWebhookURL    = "notification_webhook_url"
	KeyNotificationInterval      = "notification_interval"
	KeyNotificationTimeout       = "notification_timeout"
	KeyNotificationBatchSize     = "notification_batch_size"
	KeyLogLevel                  = "log_level"
	KeyLogFormat                 = "log_format"
)

// Config captures the scheduler settings.
type Config struct {
	SQLitePath string `yaml:"sqlite_path"`

	DirectoryURL              string        `yaml:"directory_url"`
	DirectoryTimeout          time.Duration `yaml:"directory_timeout"`
	DirectoryRefreshInterval  time.Duration `yaml:"directory_refresh_interval"`
	DirectoryFailureThreshold uint32        `yaml:"directory_failure_threshold"`
	DirectoryOpenTimeout      time.Duration `yaml:"directory_open_timeout"`
	DirectoryRateLimit        float64       `yaml:"directory_rate_limit"`

	NotificationWebhookURL string        `yaml:"notification_webhook_url"`
	NotificationInterval   time.Duration `yaml:"notification_interval"`
	NotificationTimeout    time.Duration `yaml:"notification_timeout"`
	NotificationBatchSize  int           `yaml:"notification_batch_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Options points Load at optional files.
type Options struct {
	// ConfigFile is a YAML file read below flags and environment variables.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the process environment. A missing file is ignored.
	EnvFile string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		SQLitePath:                "scheduler.db",
		DirectoryTimeout:          5 * time.Second,
		DirectoryRefreshInterval:  10 * time.Minute,
		DirectoryFailureThreshold: 5,
		DirectoryOpenTimeout:      30 * time.Second,
		DirectoryRateLimit:        5,
		NotificationInterval:      2 * time.Second,
		NotificationTimeout:       5 * time.Second,
		NotificationBatchSize:     50,
		LogLevel:                  "info",
		LogFormat:                 "json",
	}
}

// NewViper returns a viper instance bound to the SCHEDULER_ environment with defaults set.
// Callers may bind command-line flags onto it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault(KeySQLitePath, d.SQLitePath)
	v.SetDefault(KeyDirectoryURL, "")
	v.SetDefault(KeyDirectoryTimeout, d.DirectoryTimeout.String())
	v.SetDefault(KeyDirectoryRefreshInterval, d.DirectoryRefreshInterval.String())
	v.SetDefault(KeyDirectoryFailureThreshold, strconv.FormatUint(uint64(d.DirectoryFailureThreshold), 10))
	v.SetDefault(KeyDirectoryOpenTimeout, d.DirectoryOpenTimeout.String())
	v.SetDefault(KeyDirectoryRateLimit, strconv.FormatFloat(d.DirectoryRateLimit, 'f', -1, 64))
	v.SetDefault(KeyNotificationWebhookURL, "")
	v.SetDefault(KeyNotificationInterval, d.NotificationInterval.String())
	v.SetDefault(KeyNotificationTimeout, d.NotificationTimeout.String())
	v.SetDefault(KeyNotificationBatchSize, strconv.Itoa(d.NotificationBatchSize))
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	return v
}

// Load resolves the configuration from flags bound on v, SCHEDULER_* environment
// variables, the optional YAML file and the optional dotenv file, in that order of
// precedence. Every invalid value is reported in one error.
func Load(v *viper.Viper, opts Options) (Config, error) {
	if v == nil {
		v = NewViper()
	}

	if envFile := strings.TrimSpace(opts.EnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}
	if configFile := strings.TrimSpace(opts.ConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	p := parser{v: v}
	cfg := Config{
		SQLitePath:                p.str(KeySQLitePath),
		DirectoryURL:              p.url(KeyDirectoryURL),
		DirectoryTimeout:          p.duration(KeyDirectoryTimeout),
		DirectoryRefreshInterval:  p.duration(KeyDirectoryRefreshInterval),
		DirectoryFailureThreshold: uint32(p.positiveInt(KeyDirectoryFailureThreshold)),
		DirectoryOpenTimeout:      p.duration(KeyDirectoryOpenTimeout),
		DirectoryRateLimit:        p.rate(KeyDirectoryRateLimit),
		NotificationWebhookURL:    p.url(KeyNotificationWebhookURL),
		NotificationInterval:      p.duration(KeyNotificationInterval),
		NotificationTimeout:       p.duration(KeyNotificationTimeout),
		NotificationBatchSize:     p.positiveInt(KeyNotificationBatchSize),
		LogLevel:                  p.oneOf(KeyLogLevel, "debug", "info", "warn", "error"),
		LogFormat:                 p.oneOf(KeyLogFormat, "json", "text"),
	}
	if cfg.SQLitePath == "" {
		p.invalid = append(p.invalid, envName(KeySQLitePath))
	}

	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values: %s", strings.Join(p.invalid, ", "))
	}
	return cfg, nil
}

// RequireDirectory reports an error when no directory URL is configured.
func (c Config) RequireDirectory() error {
	if strings.TrimSpace(c.DirectoryURL) == "" {
		return fmt.Errorf("config: missing required value: %s", envName(KeyDirectoryURL))
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

type parser struct {
	v       *viper.Viper
	invalid []string
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) fail(key string) {
	p.invalid = append(p.invalid, envName(key))
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.str(key))
	if err != nil || d <= 0 {
		p.fail(key)
		return 0
	}
	return d
}

func (p *parser) positiveInt(key string) int {
	n, err := strconv.Atoi(p.str(key))
	if err != nil || n <= 0 {
		p.fail(key)
		return 0
	}
	return n
}

// rate accepts zero, which disables limiting.
func (p *parser) rate(key string) float64 {
	f, err := strconv.ParseFloat(p.str(key), 64)
	if err != nil || f < 0 {
		p.fail(key)
		return 0
	}
	return f
}

func (p *parser) url(key string) string {
	raw := p.str(key)
	if raw == "" {
		return ""
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		p.fail(key)
		return ""
	}
	return raw
}

func (p *parser) oneOf(key string, allowed ...string) string {
	value := strings.ToLower(p.str(key))
	for _, candidate := range allowed {
		if value == candidate {
			return value
		}
	}
	p.fail(key)
	return ""
}
