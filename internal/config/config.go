package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	VAPIDSubscriber     string `env:"VAPID_SUBSCRIBER,required=true"`
	VAPIDPublicKey      string `env:"VAPID_PUBLIC_KEY,required=true"`
	VAPIDPrivateKey     string `env:"VAPID_PRIVATE_KEY,required=true"`
	PushWebhookURL      string `env:"PUSH_WEBHOOK_URL"`
	TickIntervalSeconds int    `env:"TICK_INTERVAL_SECONDS,default=60"`
	ScanLimit           int    `env:"SCAN_LIMIT,default=100"`
	DispatchConcurrency int    `env:"DISPATCH_CONCURRENCY,default=8"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
