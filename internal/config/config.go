// Package config loads collabd's runtime configuration from a YAML file,
// environment variables, and command-line flags, in that order of
// increasing precedence.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StoreBackend selects which store.DocumentStore implementation collabd
// wires up at startup.
type StoreBackend string

const (
	StoreMemory    StoreBackend = "memory"
	StoreFirestore StoreBackend = "firestore"
	StoreSQL       StoreBackend = "sql"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	Store struct {
		Backend          StoreBackend  `mapstructure:"backend"`
		FirestoreProject string        `mapstructure:"firestore_project"`
		MySQLDSN         string        `mapstructure:"mysql_dsn"`
		FlushInterval    time.Duration `mapstructure:"flush_interval"`
	} `mapstructure:"store"`

	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`

	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
		Group   string   `mapstructure:"group"`
	} `mapstructure:"kafka"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("store.backend", string(StoreMemory))
	v.SetDefault("store.flush_interval", 5*time.Second)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("kafka.topic", "doc-operations")
	v.SetDefault("kafka.group", "collabd")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
}

// Load reads configPath (if non-empty) as a YAML config file, then layers
// COLLABD_-prefixed environment variables and flags over it. flags, when
// non-nil, is parsed for overrides before the final Unmarshal; pass
// pflag.CommandLine to bind the process's actual argv.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("collabd")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "config: read config file")
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, "config: bind flags")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// RegisterFlags declares the flag overrides Load understands, mirroring the
// config file's keys. Call before pflag.Parse.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("listen_addr", ":8080", "HTTP listen address")
	flags.String("env", "development", "deployment environment (development|production)")
	flags.String("log_level", "info", "log level (debug|info|warn|error)")
	flags.String("store.backend", string(StoreMemory), "document store backend (memory|firestore|sql)")
	flags.String("store.firestore_project", "", "GCP project ID for the Firestore store backend")
	flags.String("store.mysql_dsn", "", "MySQL DSN for the SQL store backend")
	flags.Duration("store.flush_interval", 5*time.Second, "write-behind flush interval for cached store backends")
	flags.String("redis.addr", "127.0.0.1:6379", "Redis address for presence tracking")
	flags.StringSlice("kafka.brokers", nil, "Kafka broker addresses for operation broadcast")
	flags.String("kafka.topic", "doc-operations", "Kafka topic for operation broadcast")
	flags.String("kafka.group", "collabd", "Kafka consumer group for operation broadcast")
	flags.String("auth.jwt_secret", "", "HMAC secret for JWT verification; empty disables auth")
	flags.Duration("auth.token_ttl", 24*time.Hour, "lifetime of issued access tokens")
}
