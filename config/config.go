package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"

	minVaultIterations = 100_000
)

type Config struct {
	Port      string          `mapstructure:"port"`
	Store     StoreConfig     `mapstructure:"store"`
	Vault     VaultConfig     `mapstructure:"vault"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
	Bitcoin   BitcoinConfig   `mapstructure:"bitcoin"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // mongo / sqlite
	MongoURI   string `mapstructure:"mongo_uri"`
	MongoDB    string `mapstructure:"mongo_db"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type VaultConfig struct {
	Iterations    int `mapstructure:"iterations"`
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

type RateLimitConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Burst    int           `mapstructure:"burst"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type BitcoinConfig struct {
	MainNet bool `mapstructure:"main_net"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("store.driver", StoreMongo)
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_db", "seed_custody")
	v.SetDefault("store.sqlite_path", "seed_custody.db")
	v.SetDefault("vault.iterations", minVaultIterations)
	v.SetDefault("vault.max_concurrent", 4)
	v.SetDefault("ratelimit.interval", "12s")
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.ttl", "30m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("bitcoin.main_net", true)
}

// Load reads the YAML file at path (skipped when path is empty) and applies
// environment overrides, e.g. STORE_DRIVER or VAULT_ITERATIONS.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ENV 覆盖 YAML
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDB == "" {
			return fmt.Errorf("store.mongo_uri and store.mongo_db are required for the mongo driver")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Vault.Iterations < minVaultIterations {
		return fmt.Errorf("vault.iterations must be at least %d, got %d", minVaultIterations, c.Vault.Iterations)
	}
	if c.Vault.MaxConcurrent <= 0 {
		return fmt.Errorf("vault.max_concurrent must be positive")
	}
	if c.RateLimit.Interval <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.interval and ratelimit.burst must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
