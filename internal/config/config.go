// README: Service configuration loaded with viper from VTC_* env variables and an optional config file.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	FuelPriceTTL time.Duration `mapstructure:"fuel_price_ttl"`
}

type MapsConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Language string        `mapstructure:"language"`
	Region   string        `mapstructure:"region"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// CounterConfig selects the RSE counter store: memory, sqlite or postgres.
type CounterConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Maps    MapsConfig    `mapstructure:"maps"`
	Log     LogConfig     `mapstructure:"log"`
	Counter CounterConfig `mapstructure:"counter"`
}

var ErrInvalidConfig = errors.New("invalid config")

// setDefaults is the only place service defaults are declared. Every key must have a
// default so that AutomaticEnv can bind it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.fuel_price_ttl", 6*time.Hour)
	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.language", "fr")
	v.SetDefault("maps.region", "fr")
	v.SetDefault("maps.timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("counter.backend", "memory")
	v.SetDefault("counter.sqlite_path", "vtc-rse.db")
}

// Load reads path (any format viper understands) when given, then VTC_* environment
// variables, e.g. VTC_DB_DSN or VTC_COUNTER_BACKEND. A missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VTC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isMissingFile(err) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Counter.Backend {
	case "memory", "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			return errors.Join(ErrInvalidConfig, errors.New("counter.backend=postgres requires db.dsn"))
		}
	default:
		return errors.Join(ErrInvalidConfig, errors.New("unknown counter.backend "+c.Counter.Backend))
	}
	return nil
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
