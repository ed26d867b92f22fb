package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Dhan      DhanConfig      `yaml:"dhan"`
	Server    ServerConfig    `yaml:"server"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type DhanConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	AccessToken     string        `yaml:"access_token"`
	ClientID        string        `yaml:"client_id"`
	UnderlyingScrip int           `yaml:"underlying_scrip"`
	UnderlyingSeg   string        `yaml:"underlying_seg"`
}

// HasCredentials reports whether live broker calls can be authenticated.
func (c DhanConfig) HasCredentials() bool {
	return c.AccessToken != "" && c.ClientID != ""
}

type ServerConfig struct {
	Address     string `yaml:"address"`
	Environment string `yaml:"environment"`
}

type StrategyConfig struct {
	APIDelay         time.Duration `yaml:"api_delay"`
	StrikesAroundATM int           `yaml:"strikes_around_atm"`
	DefaultScenario  string        `yaml:"default_scenario"`
	MockDataPath     string        `yaml:"mock_data_path"`
	MonitorInterval  time.Duration `yaml:"monitor_interval"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func (c MetricsConfig) EnabledValue() bool {
	return c.Enabled != nil && *c.Enabled
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = "json"
	}
	if cfg.Dhan.BaseURL == "" {
		cfg.Dhan.BaseURL = "https://api.dhan.co/v2"
	}
	if cfg.Dhan.Timeout == 0 {
		cfg.Dhan.Timeout = 10 * time.Second
	}
	if cfg.Dhan.UnderlyingScrip == 0 {
		cfg.Dhan.UnderlyingScrip = 13
	}
	if cfg.Dhan.UnderlyingSeg == "" {
		cfg.Dhan.UnderlyingSeg = "IDX_I"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":4000"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Strategy.APIDelay == 0 {
		cfg.Strategy.APIDelay = 2500 * time.Millisecond
	}
	if cfg.Strategy.StrikesAroundATM == 0 {
		cfg.Strategy.StrikesAroundATM = 10
	}
	if cfg.Strategy.DefaultScenario == "" {
		cfg.Strategy.DefaultScenario = "no-adjustments"
	}
	if cfg.Strategy.MockDataPath == "" {
		cfg.Strategy.MockDataPath = "internal/mock/scenarios.yaml"
	}
	if cfg.Strategy.MonitorInterval == 0 {
		cfg.Strategy.MonitorInterval = time.Minute
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = ":memory:"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
	if cfg.Timescale.MaxOpenConns == 0 {
		cfg.Timescale.MaxOpenConns = 4
	}
	if cfg.Timescale.MaxIdleConns == 0 {
		cfg.Timescale.MaxIdleConns = 2
	}
	if cfg.Timescale.ConnMaxLifetime == 0 {
		cfg.Timescale.ConnMaxLifetime = 30 * time.Minute
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("DHAN_ACCESS_TOKEN")); token != "" {
		cfg.Dhan.AccessToken = token
	}
	if clientID := strings.TrimSpace(os.Getenv("DHAN_CLIENT_ID")); clientID != "" {
		cfg.Dhan.ClientID = clientID
	}
	if token := strings.TrimSpace(os.Getenv("OCB_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("OCB_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if dsn := strings.TrimSpace(os.Getenv("OCB_TIMESCALE_DSN")); dsn != "" {
		cfg.Timescale.DSN = dsn
	}
}

func validate(cfg *Config) error {
	switch cfg.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("log.encoding must be json or console, got %q", cfg.Log.Encoding)
	}
	if cfg.Dhan.Timeout < 0 {
		return errors.New("dhan.timeout must be >= 0")
	}
	if cfg.Strategy.APIDelay < 0 {
		return errors.New("strategy.api_delay must be >= 0")
	}
	if cfg.Strategy.StrikesAroundATM < 0 {
		return errors.New("strategy.strikes_around_atm must be >= 0")
	}
	if cfg.Strategy.MonitorInterval < 0 {
		return errors.New("strategy.monitor_interval must be >= 0")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Timescale.Enabled {
		if cfg.Timescale.DSN == "" {
			return errors.New("timescale.dsn is required when timescale is enabled")
		}
		if cfg.Timescale.QueueSize < 0 {
			return errors.New("timescale.queue_size must be >= 0")
		}
	}
	return nil
}
