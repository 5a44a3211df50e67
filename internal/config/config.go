package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the binaries read from the environment.
type Config struct {
	Port     string
	LogLevel string

	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnectTries  int
	JWTSecret       string
	RedisAddress    string
	RedisPassword   string
	SeedAdminPhone  string
	SeedAdminSecret string

	TelegramBotToken    string
	TelegramBotUsername string

	KafkaBrokers     []string
	KafkaNotifyTopic string

	PubSubProjectID       string
	PubSubNotifyTopic     string
	PubSubCredentialsJSON string

	NotifyQueueSize     int
	NotifyRetryInterval time.Duration
	NotifyMaxAttempts   int

	AgingBucketsDistributor []int
	AgingBucketsPlatform    []int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            stringFromEnv("PORT", "3000"),
		LogLevel:        stringFromEnv("LOG_LEVEL", "info"),
		DatabaseURL:     databaseURL(),
		DBMaxOpenConns:  intFromEnv("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:  intFromEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnectTries:  intFromEnv("DB_CONNECT_TRIES", 5),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisAddress:    os.Getenv("REDIS_ADDRESS"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		SeedAdminPhone:  stringFromEnv("ADMIN_PHONE", "+998900000000"),
		SeedAdminSecret: stringFromEnv("ADMIN_PASSWORD", "admin123"),

		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramBotUsername: os.Getenv("TELEGRAM_BOT_USERNAME"),

		KafkaBrokers:     listFromEnv("KAFKA_BROKERS"),
		KafkaNotifyTopic: stringFromEnv("KAFKA_NOTIFY_TOPIC", "shop-notifications"),

		PubSubProjectID:       os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubNotifyTopic:     stringFromEnv("PUBSUB_NOTIFY_TOPIC", "shop-notifications"),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),

		NotifyQueueSize:     intFromEnv("NOTIFY_QUEUE_SIZE", 256),
		NotifyRetryInterval: time.Duration(intFromEnv("NOTIFY_RETRY_INTERVAL_SECONDS", 30)) * time.Second,
		NotifyMaxAttempts:   intFromEnv("NOTIFY_MAX_ATTEMPTS", 8),
	}

	var err error
	if cfg.AgingBucketsDistributor, err = daysFromEnv("AGING_BUCKETS_DISTRIBUTOR", []int{7, 30, 60}); err != nil {
		return nil, err
	}
	if cfg.AgingBucketsPlatform, err = daysFromEnv("AGING_BUCKETS_PLATFORM", []int{30, 60}); err != nil {
		return nil, err
	}
	if cfg.JWTSecret != "" {
		os.Setenv("JWT_SECRET", cfg.JWTSecret)
	}
	return cfg, nil
}

func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		stringFromEnv("DB_PORT", "5432"),
	)
}

func stringFromEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func listFromEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// daysFromEnv parses a comma-separated list of strictly increasing positive day counts.
func daysFromEnv(key string, def []int) ([]int, error) {
	parts := listFromEnv(key)
	if len(parts) == 0 {
		return def, nil
	}
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s: invalid day boundary %q", key, p)
		}
		days = append(days, n)
	}
	if !sort.IntsAreSorted(days) {
		return nil, fmt.Errorf("%s: boundaries must be increasing", key)
	}
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1] {
			return nil, fmt.Errorf("%s: duplicate boundary %d", key, days[i])
		}
	}
	return days, nil
}
