package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName             string        `mapstructure:"app_name"`
	Env                 string        `mapstructure:"app_env"`
	LogLevel            string        `mapstructure:"log_level"`
	// TargetURL is the polled status URL. It must be absolute unless BaseURL is set,
	// in which case relative paths such as "/timerdata.sts" resolve against it.
	TargetURL           string        `mapstructure:"target_url"`
	BaseURL             string        `mapstructure:"base_url"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`

	// TransportsRaw is the comma separated transport preference order.
	TransportsRaw             string   `mapstructure:"transports"`
	Transports                []string `mapstructure:"-"`
	MIMEOverride              string   `mapstructure:"mime_override"`
	ReleaseOnTransportFailure bool     `mapstructure:"release_on_transport_failure"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-status-poller")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("target_url", "http://127.0.0.1/timerdata.sts")
	v.SetDefault("base_url", "")
	v.SetDefault("poll_interval", 1) // seconds
	v.SetDefault("transports", "resty,nethttp,rawconn")
	v.SetDefault("mime_override", "text/xml")
	v.SetDefault("release_on_transport_failure", false)
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/snapshots.db")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64(time.Hour/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	if cfg.TargetURL == "" {
		return nil, fmt.Errorf("target_url is required")
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL != "" && !isAbsoluteURL(cfg.BaseURL) {
		return nil, fmt.Errorf("base_url must be an absolute http(s) url")
	}
	if cfg.BaseURL == "" && !isAbsoluteURL(cfg.TargetURL) {
		return nil, fmt.Errorf("target_url must be absolute when base_url is not set")
	}

	if cfg.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	cfg.Transports = splitList(cfg.TransportsRaw)
	if len(cfg.Transports) == 0 {
		return nil, fmt.Errorf("transports must name at least one transport")
	}

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
