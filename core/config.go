package core

import (
	"fmt"
	"strings"
	"time"
)

type PostingConfig struct {
	MaxAttempts   int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	RetryInterval time.Duration `koanf:"retry_interval" mapstructure:"retry_interval"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// WebhookDelay absorbs archive propagation lag before the match stage.
	WebhookDelay   time.Duration `koanf:"webhook_delay" mapstructure:"webhook_delay"`
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl" mapstructure:"idempotency_ttl"`
	Posting        PostingConfig `koanf:"posting" mapstructure:"posting"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "bigcases",
		WebhookDelay:   2 * time.Minute,
		IdempotencyTTL: 48 * time.Hour,
		Posting: PostingConfig{
			MaxAttempts:   5,
			RetryInterval: 30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.WebhookDelay < 0 {
		return fmt.Errorf("core: webhook_delay must not be negative")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("core: idempotency_ttl must be positive")
	}
	if c.Posting.MaxAttempts < 1 {
		return fmt.Errorf("core: posting.max_attempts must be at least 1")
	}
	if c.Posting.RetryInterval < 0 {
		return fmt.Errorf("core: posting.retry_interval must not be negative")
	}
	return nil
}
