package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Holdings  HoldingsConfig  `mapstructure:"holdings"`
	Prices    PricesConfig    `mapstructure:"prices"`
	AWS       AWSConfig       `mapstructure:"aws"`
}

type ServiceType string

const (
	API    ServiceType = "API"
	WORKER ServiceType = "WORKER"
)

type ServiceConfig struct {
	Type ServiceType `mapstructure:"type"`
	Port string      `mapstructure:"port"`
}

type DatabasesConfig struct {
	SQL   SQLConfig   `mapstructure:"sql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// StorageDriver selects the persistence adapter behind the repositories.
type StorageDriver string

const (
	PostgresDriver StorageDriver = "postgres"
	MemoryDriver   StorageDriver = "memory"
)

type SQLConfig struct {
	Host             string        `mapstructure:"host"`
	Port             string        `mapstructure:"port"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	PasswordSecretID string        `mapstructure:"passwordSecretId"`
	Driver           StorageDriver `mapstructure:"driver"`
	Database         string        `mapstructure:"database"`
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConns         int32         `mapstructure:"maxConns"`
	MinConns         int32         `mapstructure:"minConns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	TLS      bool   `mapstructure:"tls"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	ToFile   bool   `mapstructure:"toFile"`
	FilePath string `mapstructure:"filePath"`
}

// ConcurrencyPolicy decides what happens when a snapshot computation is
// requested for a portfolio that already has one running.
type ConcurrencyPolicy string

const (
	QueuePolicy  ConcurrencyPolicy = "queue"
	RejectPolicy ConcurrencyPolicy = "reject"
)

type SnapshotsConfig struct {
	ConcurrencyPolicy ConcurrencyPolicy `mapstructure:"concurrencyPolicy"`
	MaxPriceFetches   int               `mapstructure:"maxPriceFetches"`
	// ExtendCron is the cron spec the worker uses to extend every
	// portfolio's snapshot series up to today.
	ExtendCron string `mapstructure:"extendCron"`
}

type HoldingsConfig struct {
	CostBasisMethod string `mapstructure:"costBasisMethod"`
}

// PriceSource selects the price-lookup collaborator.
type PriceSource string

const (
	RedisPriceSource  PriceSource = "redis"
	MemoryPriceSource PriceSource = "memory"
)

type PricesConfig struct {
	Source     PriceSource `mapstructure:"source"`
	KeyPrefix  string      `mapstructure:"keyPrefix"`
	MaxRetries uint64      `mapstructure:"maxRetries"`
	// CacheTTLSeconds bounds how long a quote lives in a computation's price cache.
	CacheTTLSeconds int `mapstructure:"cacheTtlSeconds"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. a localstack container.
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig reads settings/appsettings.yaml, or appsettings.<env>.yaml when
// env is given. A .env file next to the settings directory is loaded first so
// that its variables can override yaml values.
func LoadConfig(path string, env ...string) (*Config, error) {
	var cfg Config

	dotenv := filepath.Join(filepath.Dir(filepath.Clean(path)), ".env")
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", dotenv, err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	name := "appsettings"
	if len(env) > 0 && env[0] != "" {
		name = "appsettings." + env[0]
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.type", string(API))
	v.SetDefault("service.port", "8000")
	v.SetDefault("databases.sql.driver", string(PostgresDriver))
	v.SetDefault("databases.sql.maxConns", 5)
	v.SetDefault("databases.sql.minConns", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("snapshots.concurrencyPolicy", string(QueuePolicy))
	v.SetDefault("snapshots.maxPriceFetches", 8)
	v.SetDefault("snapshots.extendCron", "15 0 * * *")
	v.SetDefault("holdings.costBasisMethod", "average")
	v.SetDefault("prices.source", string(MemoryPriceSource))
	v.SetDefault("prices.keyPrefix", "prices")
	v.SetDefault("prices.maxRetries", 3)
	v.SetDefault("prices.cacheTtlSeconds", 300)
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.Service.Type {
	case API, WORKER:
	default:
		return fmt.Errorf("unknown service type %q", c.Service.Type)
	}
	switch c.Databases.SQL.Driver {
	case PostgresDriver, MemoryDriver:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Databases.SQL.Driver)
	}
	switch c.Snapshots.ConcurrencyPolicy {
	case QueuePolicy, RejectPolicy:
	default:
		return fmt.Errorf("unknown concurrency policy %q", c.Snapshots.ConcurrencyPolicy)
	}
	switch c.Prices.Source {
	case RedisPriceSource, MemoryPriceSource:
	default:
		return fmt.Errorf("unknown price source %q", c.Prices.Source)
	}
	return nil
}
