package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App          `json:"app"          toml:"app"`
		HTTP         `json:"http"         toml:"http"`
		DB           `json:"db"           toml:"db"`
		Log          `json:"logger"       toml:"logger"`
		Blockchain   `json:"blockchain"   toml:"blockchain"`
		AI           `json:"ai"           toml:"ai"`
		Audit        `json:"audit"        toml:"audit"`
		Verification `json:"verification" toml:"verification"`
		Cache        `json:"cache"        toml:"cache"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"  env-default:"wallet-risk-engine"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME"  env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"     env-default:"false"`
	}

	HTTP struct {
		Port            string `json:"port"             toml:"port"             env:"HTTP_PORT"             env-default:"8080"`
		ReadTimeout     int    `json:"read_timeout"     toml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"15"`
		WriteTimeout    int    `json:"write_timeout"    toml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"30"`
		IdleTimeout     int    `json:"idle_timeout"     toml:"idle_timeout"     env:"HTTP_IDLE_TIMEOUT"     env-default:"60"`
		ShutdownTimeout int    `json:"shutdown_timeout" toml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5"`
	}

	// DB is optional: an empty DatabaseURL selects the in-memory stores.
	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		MigrationsPath    string `json:"migrations_path"     toml:"migrations_path"     env:"MIGRATIONS_PATH"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX"          env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK"  env-default:"1"`
	}

	Log struct {
		Level  string `json:"level"  toml:"level"  env:"LOG_LEVEL"  env-default:"info"`
		Format string `json:"format" toml:"format" env:"LOG_FORMAT" env-default:"text"`
	}

	Blockchain struct {
		AlchemyAPIKey  string            `json:"alchemy_api_key" toml:"alchemy_api_key" env:"ALCHEMY_API_KEY"`
		NetworkURLs    map[string]string `json:"network_urls"    toml:"network_urls"    env:"BLOCKCHAIN_NETWORK_URLS"`
		RequestTimeout int               `json:"request_timeout" toml:"request_timeout" env:"BLOCKCHAIN_REQUEST_TIMEOUT" env-default:"10"`
	}

	AI struct {
		APIKey  string `json:"api_key"  toml:"api_key"  env:"AI_API_KEY"`
		BaseURL string `json:"base_url" toml:"base_url" env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
		Model   string `json:"model"    toml:"model"    env:"AI_MODEL"    env-default:"gpt-4o-mini"`
		Timeout int    `json:"timeout"  toml:"timeout"  env:"AI_TIMEOUT"  env-default:"8"`
	}

	Audit struct {
		EncryptionKey  string  `json:"encryption_key"   toml:"encryption_key"   env:"AUDIT_ENCRYPTION_KEY"`
		MinValueAED    float64 `json:"min_value_aed"    toml:"min_value_aed"    env:"AUDIT_MIN_VALUE_AED"    env-default:"50000"`
		ListLimit      int     `json:"list_limit"       toml:"list_limit"       env:"AUDIT_LIST_LIMIT"       env-default:"100"`
	}

	Verification struct {
		MinAmountAED      float64 `json:"min_amount_aed"      toml:"min_amount_aed"      env:"VERIFICATION_MIN_AMOUNT_AED"      env-default:"10000"`
		RecentTransfers   int     `json:"recent_transfers"    toml:"recent_transfers"    env:"VERIFICATION_RECENT_TRANSFERS"    env-default:"20"`
		SimulationEnabled bool    `json:"simulation_enabled"  toml:"simulation_enabled"  env:"VERIFICATION_SIMULATION_ENABLED"  env-default:"true"`
	}

	Cache struct {
		RedisURL        string `json:"redis_url"        toml:"redis_url"        env:"REDIS_URL"`
		TTL             int    `json:"ttl"              toml:"ttl"              env:"CACHE_TTL"              env-default:"300"`
		JanitorInterval int    `json:"janitor_interval" toml:"janitor_interval" env:"CACHE_JANITOR_INTERVAL" env-default:"60"`
	}
)

// LoadConfig reads config.toml (or config.json) next to this file and applies env overrides.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	if c.App.Debug {
		return slog.LevelDebug
	}
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (b Blockchain) Timeout() time.Duration {
	return time.Duration(b.RequestTimeout) * time.Second
}

func (a AI) RequestTimeout() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

func (c Cache) EntryTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

func (c Cache) JanitorEvery() time.Duration {
	return time.Duration(c.JanitorInterval) * time.Second
}
