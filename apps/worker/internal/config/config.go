package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Redis       RedisConfig
	Queues      QueueConfig
	Mail        MailConfig
	Logging     LoggingConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type QueueConfig struct {
	VisibilityTimeout time.Duration
	ClaimInterval     time.Duration
}

// MailConfig points at the SMTP relay used for notification mail. An empty
// Host logs messages instead of sending them.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("worker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../../config")
	v.SetEnvPrefix("RENTDASH_WORKER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if cfg.Queues.ClaimInterval <= 0 {
		return nil, fmt.Errorf("queues.claiminterval must be positive")
	}
	if cfg.Mail.Host != "" && cfg.Mail.From == "" {
		return nil, fmt.Errorf("mail.from is required when mail.host is set")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "dashboard:tasks")
	v.SetDefault("redis.group", "dashboard-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("queues.visibilitytimeout", "2m")
	v.SetDefault("queues.claiminterval", "10s")

	v.SetDefault("mail.port", 587)

	v.SetDefault("logging.level", "info")
}
