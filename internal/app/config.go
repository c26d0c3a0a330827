package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/sdsgks2b79-svg/GG-market-sub000/core/config"
	coredatabase "github.com/sdsgks2b79-svg/GG-market-sub000/core/database"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/state"
)

// Backends for stores and sessions.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// RedisConfig points the session store at a Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// KafkaConfig enables receipt events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" envconfig:"KAFKA_TOPIC"`
}

// ShopConfig holds storefront behaviour.
type ShopConfig struct {
	Currency string `yaml:"currency" envconfig:"SHOP_CURRENCY"`
	// Exponent is the number of minor-unit digits; prices are stored in minor units.
	Exponent       int32         `yaml:"exponent" envconfig:"SHOP_EXPONENT"`
	StoreBackend   string        `yaml:"store_backend" envconfig:"SHOP_STORE_BACKEND"`
	SessionBackend string        `yaml:"session_backend" envconfig:"SHOP_SESSION_BACKEND"`
	AwaitingTTL    time.Duration `yaml:"awaiting_ttl" envconfig:"SHOP_AWAITING_TTL"`

	ClearCartAfterReceipt bool   `yaml:"clear_cart_after_receipt" envconfig:"SHOP_CLEAR_CART_AFTER_RECEIPT"`
	ReceiptTitle          string `yaml:"receipt_title" envconfig:"SHOP_RECEIPT_TITLE"`
	SeedCatalog           *bool  `yaml:"seed_catalog" envconfig:"SHOP_SEED_CATALOG"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Kafka    KafkaConfig         `yaml:"kafka"`
	Shop     ShopConfig          `yaml:"shop"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	s := &cfg.Shop
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if s.Currency == "" {
		s.Currency = "UZS"
	}
	if s.Exponent < 0 || s.Exponent > 4 {
		return fmt.Errorf("shop.exponent must be between 0 and 4, got %d", s.Exponent)
	}
	if s.AwaitingTTL < 0 {
		return fmt.Errorf("shop.awaiting_ttl must be >= 0")
	}
	if s.AwaitingTTL == 0 {
		s.AwaitingTTL = state.DefaultTTL
	}
	if strings.TrimSpace(s.ReceiptTitle) == "" {
		s.ReceiptTitle = "GG market"
	}
	if s.SeedCatalog == nil {
		seed := true
		s.SeedCatalog = &seed
	}

	s.StoreBackend = strings.ToLower(strings.TrimSpace(s.StoreBackend))
	switch s.StoreBackend {
	case "":
		s.StoreBackend = BackendMemory
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.name is required when shop.store_backend is 'postgres'")
		}
		cfg.Database = cfg.Database.WithDefaults()
	default:
		return fmt.Errorf("invalid shop.store_backend %q; allowed: postgres, memory", s.StoreBackend)
	}

	s.SessionBackend = strings.ToLower(strings.TrimSpace(s.SessionBackend))
	switch s.SessionBackend {
	case "":
		s.SessionBackend = BackendMemory
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when shop.session_backend is 'redis'")
		}
		if cfg.Redis.Prefix == "" {
			cfg.Redis.Prefix = "shopbot:awaiting"
		}
	default:
		return fmt.Errorf("invalid shop.session_backend %q; allowed: redis, memory", s.SessionBackend)
	}

	brokers := cfg.Kafka.Brokers[:0]
	for _, b := range cfg.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.Kafka.Brokers = brokers
	if len(brokers) > 0 && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		cfg.Kafka.Topic = "shop.receipts"
	}
	return nil
}
