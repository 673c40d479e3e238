// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadsync/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	IndiaMART  IndiaMARTConfig  `yaml:"indiamart" mapstructure:"indiamart"`
	TradeIndia TradeIndiaConfig `yaml:"tradeindia" mapstructure:"tradeindia"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string            `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *store.PoolConfig `yaml:"pool,omitempty" mapstructure:"pool"`
}

// IndiaMARTConfig holds the IndiaMART Pull API credentials.
type IndiaMARTConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Configured reports whether the credential bundle is complete.
func (c IndiaMARTConfig) Configured() bool { return c.APIKey != "" }

// TradeIndiaConfig holds the TradeIndia my_inquiry API credentials.
type TradeIndiaConfig struct {
	UserID    string  `yaml:"userid" mapstructure:"userid"`
	ProfileID string  `yaml:"profile_id" mapstructure:"profile_id"`
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Limit     int     `yaml:"limit" mapstructure:"limit"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Configured reports whether the credential bundle is complete.
func (c TradeIndiaConfig) Configured() bool {
	return c.UserID != "" && c.ProfileID != "" && c.Key != ""
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "leadsync.db")
	v.SetDefault("indiamart.api_key", "")
	v.SetDefault("indiamart.base_url", "https://mapi.indiamart.com")
	v.SetDefault("tradeindia.userid", "")
	v.SetDefault("tradeindia.profile_id", "")
	v.SetDefault("tradeindia.key", "")
	v.SetDefault("tradeindia.base_url", "https://www.tradeindia.com")
	v.SetDefault("tradeindia.limit", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Redacted returns a copy with credential values masked, for display.
func (c Config) Redacted() Config {
	out := c
	out.IndiaMART.APIKey = mask(c.IndiaMART.APIKey)
	out.TradeIndia.Key = mask(c.TradeIndia.Key)
	out.Store.DatabaseURL = mask(c.Store.DatabaseURL)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
