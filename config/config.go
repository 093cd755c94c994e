package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/goliatone/go-tablecache/cache"
	"github.com/goliatone/go-tablecache/datalayer"
	"github.com/goliatone/go-tablecache/files"
	"github.com/goliatone/go-tablecache/internal/sqlstore"
)

// EnvPrefix prefixes every environment override, e.g.
// TABLECACHE_DATABASE_DSN for database.dsn.
const EnvPrefix = "TABLECACHE"

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Search   SearchConfig   `mapstructure:"search"`
	Blob     BlobConfig     `mapstructure:"blob"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig mirrors cache.Config under the cache key.
type CacheConfig struct {
	Backend            string        `mapstructure:"backend"`
	Capacity           int           `mapstructure:"capacity"`
	TTL                time.Duration `mapstructure:"ttl"`
	Shards             int           `mapstructure:"shards"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

// SearchConfig caps the rows returned per table by search.
type SearchConfig struct {
	Limit int `mapstructure:"limit"`
}

// BlobConfig addresses the object store of file blobs. An empty bucket
// disables blob deletion.
type BlobConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// LogConfig sets the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	defaults := cache.DefaultConfig()

	v.SetDefault("database.driver", sqlstore.DriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("cache.backend", defaults.Backend)
	v.SetDefault("cache.capacity", defaults.Capacity)
	v.SetDefault("cache.ttl", defaults.TTL)
	v.SetDefault("cache.shards", defaults.NumShards)
	v.SetDefault("cache.eviction_percentage", defaults.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", time.Duration(0))
	v.SetDefault("search.limit", 50)
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.region", "us-east-1")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("log.level", logrus.InfoLevel.String())
	v.SetDefault("log.format", FormatText)
}

// Load reads path (any format viper understands) over the defaults and
// applies TABLECACHE_* environment overrides. An empty path loads defaults
// and environment only. DATABASE_URL is honored when no DSN is configured.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: read %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "config: invalid")
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Database),
		validation.Field(&c.Cache),
		validation.Field(&c.Search),
		validation.Field(&c.Log),
	)
}

// Validate requires a known driver and a DSN.
func (c DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(sqlstore.DriverPostgres, sqlstore.DriverPgx, sqlstore.DriverSQLite)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// Validate applies the cache package rules.
func (c CacheConfig) Validate() error {
	return c.ServiceConfig().Validate()
}

// Validate requires a positive limit.
func (c SearchConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Limit, validation.Required, validation.Min(1)),
	)
}

// Validate requires a logrus level and a known format.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.By(func(any) error {
			_, err := logrus.ParseLevel(c.Level)
			return err
		})),
		validation.Field(&c.Format, validation.Required, validation.In(FormatText, FormatJSON)),
	)
}

// StoreConfig returns the sqlstore connection settings.
func (c DatabaseConfig) StoreConfig() sqlstore.Config {
	return sqlstore.Config{Driver: c.Driver, DSN: c.DSN}
}

// ServiceConfig returns the cache settings.
func (c CacheConfig) ServiceConfig() cache.Config {
	return cache.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		TTL:                c.TTL,
		NumShards:          c.Shards,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

// LayerOptions returns the data layer options derived from the search
// settings.
func (c SearchConfig) LayerOptions() []datalayer.Option {
	if c.Limit <= 0 {
		return nil
	}
	return []datalayer.Option{datalayer.WithSearchLimit(c.Limit)}
}

// S3 returns the S3 settings, or false when no bucket is configured.
func (c BlobConfig) S3() (files.S3Config, bool) {
	if c.Bucket == "" {
		return files.S3Config{}, false
	}
	return files.S3Config{Bucket: c.Bucket, Region: c.Region, Endpoint: c.Endpoint}, true
}

// NewLogger builds a logrus logger for c.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "config: log level %q", c.Level)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if c.Format == FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
