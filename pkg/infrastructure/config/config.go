// Package config loads runtime settings from a config file, FULFILLMENT_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// EnvPrefix is prepended to every environment variable, e.g. FULFILLMENT_STORE_BACKEND
const EnvPrefix = "FULFILLMENT"

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Store          StoreConfig          `mapstructure:"store"`
	Postgres       PostgresConfig       `mapstructure:"postgres"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Log            LogConfig            `mapstructure:"log"`
	Fulfillment    FulfillmentConfig    `mapstructure:"fulfillment"`
	Consumption    ConsumptionConfig    `mapstructure:"consumption"`
	Notification   NotificationConfig   `mapstructure:"notification"`
	OTel           OTelConfig           `mapstructure:"otel"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig enables the menu cache when Addr is set
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// KafkaConfig enables kafka alerts when Brokers is non-empty
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ReconciliationConfig uses an in-memory log when Path is empty
type ReconciliationConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type FulfillmentConfig struct {
	Policy entities.FulfillmentPolicy `mapstructure:"policy"`
}

type ConsumptionConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

type NotificationConfig struct {
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OTelConfig disables tracing export when Endpoint is empty
type OTelConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// New returns a viper instance with defaults and environment binding in place.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "inventory.low-stock")
	v.SetDefault("reconciliation.path", "./data/reconciliation.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fulfillment.policy", entities.AllOrNothing.String())
	v.SetDefault("consumption.max_attempts", 3)
	v.SetDefault("notification.queue_size", 64)
	v.SetDefault("notification.timeout", "5s")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.service_name", "fulfillment")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads cfgFile (if set) into v and decodes the result
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToPolicyHookFunc(),
		)
	})
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when store.backend is %s", BackendPostgres)
		}
	default:
		return fmt.Errorf("invalid store.backend: %s (expected %s or %s)", c.Store.Backend, BackendMemory, BackendPostgres)
	}
	if c.Consumption.MaxAttempts < 1 {
		return fmt.Errorf("consumption.max_attempts must be at least 1, got %d", c.Consumption.MaxAttempts)
	}
	if c.Notification.QueueSize < 1 {
		return fmt.Errorf("notification.queue_size must be at least 1, got %d", c.Notification.QueueSize)
	}
	if c.Notification.Timeout <= 0 {
		return fmt.Errorf("notification.timeout must be positive, got %s", c.Notification.Timeout)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log.format: %s (expected json or console)", c.Log.Format)
	}
	return nil
}

func stringToPolicyHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(entities.FulfillmentPolicy(0)) {
			return data, nil
		}
		return entities.ParseFulfillmentPolicy(data.(string))
	}
}
