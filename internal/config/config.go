package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	KafkaBrokers          []string
	KafkaTopic            string
	StoreID               string
	AuthSecret            string
	AccessTokenTTLMinutes int
	SyncDebounce          time.Duration
	CloudTimeout          time.Duration
	CloudStubDelay        time.Duration
	LogLevel              string
	LogPretty             bool
	SeedAdminPassword     string
	SeedCashierPassword   string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL := getPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 480)
	debounceMS := getPositiveInt("SYNC_DEBOUNCE_MS", 2000)
	cloudTimeout := getPositiveInt("CLOUD_TIMEOUT_SECONDS", 10)
	stubDelayMS, err := strconv.Atoi(getEnv("CLOUD_STUB_DELAY_MS", "1000"))
	if err != nil || stubDelayMS < 0 {
		stubDelayMS = 1000
	}
	pretty, _ := strconv.ParseBool(getEnv("LOG_PRETTY", "false"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		KafkaBrokers:          splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "pos.events"),
		StoreID:               getEnv("DEFAULT_STORE_ID", "main-store"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SyncDebounce:          time.Duration(debounceMS) * time.Millisecond,
		CloudTimeout:          time.Duration(cloudTimeout) * time.Second,
		CloudStubDelay:        time.Duration(stubDelayMS) * time.Millisecond,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPretty:             pretty,
		SeedAdminPassword:     strings.TrimSpace(os.Getenv("SEED_ADMIN_PASSWORD")),
		SeedCashierPassword:   strings.TrimSpace(os.Getenv("SEED_CASHIER_PASSWORD")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getPositiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
