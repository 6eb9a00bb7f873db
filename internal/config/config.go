package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Storage   Storage   `mapstructure:"storage"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Optimizer Optimizer `mapstructure:"optimizer"`
	Retry     Retry     `mapstructure:"retry"`
}

// Storage holds configuration for the S3-compatible object store.
type Storage struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID   string        `mapstructure:"group_id"`   // Consumer group ID
	Topic     string        `mapstructure:"topic"`      // Kafka topic name
	Brokers   []string      `mapstructure:"brokers"`    // List of Kafka broker addresses
	BatchSize int           `mapstructure:"batch_size"` // Max messages handed to the handler at once
	Linger    time.Duration `mapstructure:"linger"`     // How long to wait for more messages after the first
}

// Optimizer holds the image optimization options.
type Optimizer struct {
	SourcePrefix string `mapstructure:"source_prefix"` // Only keys under this prefix are processed
	DestPrefix   string `mapstructure:"dest_prefix"`   // Prefix of the derived output key
	Quality      int    `mapstructure:"quality"`       // JPEG quality of the re-encode, 1-100
}

// Retry defines the retry policy for the transport edge (fetching and
// committing queue messages). The optimization pipeline itself never
// retries; redelivery is left to the broker.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// setDefaults registers defaults so the worker runs with only the
// broker and storage endpoints configured.
func setDefaults() {
	viper.SetDefault("kafka.group_id", "image-optimizer")
	viper.SetDefault("kafka.batch_size", 10)
	viper.SetDefault("kafka.linger", 250*time.Millisecond)

	viper.SetDefault("optimizer.source_prefix", "uploads/")
	viper.SetDefault("optimizer.dest_prefix", "optimized/")
	viper.SetDefault("optimizer.quality", 30)

	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.delay", 100*time.Millisecond)
	viper.SetDefault("retry.backoff", 2.0)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.endpoint":   "MINIO_ENDPOINT",
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified directory.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
