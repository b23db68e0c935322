package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	LogLevel   string

	DBDriver    string
	DatabaseURL string

	JWTSecret      []byte
	AccessTokenTTL time.Duration

	RedisAddr      string
	CartTTL        time.Duration
	IdempotencyTTL time.Duration

	KafkaBrokers    []string
	KafkaOrderTopic string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	InvoiceDir string

	CSRFEnabled  bool
	CookieSecure bool
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("notice: cannot read .env: %v", err)
	}

	return Config{
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AccessTokenTTL: EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		CartTTL:        EnvDurationDefault("CART_TTL", 72*time.Hour),
		IdempotencyTTL: EnvDurationDefault("IDEMPOTENCY_TTL", 24*time.Hour),

		KafkaBrokers:    CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: EnvDefault("KAFKA_ORDER_TOPIC", "order_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		InvoiceDir: EnvDefault("INVOICE_DIR", "invoices"),

		CSRFEnabled:  EnvBoolDefault("CSRF_ENABLED", true),
		CookieSecure: EnvBoolDefault("COOKIE_SECURE", true),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDurationDefault accepts Go duration syntax ("90s", "24h").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
