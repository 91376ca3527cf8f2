package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	StoreName            string
	ReceiptFooter        string
	SuggestionTTLSeconds int
	CommitTimeoutSeconds int
	AuthSecret           string
	AccessTokenTTLMin    int
	ManagerPIN           string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	suggestionTTL := getEnvInt("SUGGESTION_TTL_SECONDS", 30)
	commitTimeout := getEnvInt("COMMIT_TIMEOUT_SECONDS", 10)
	tokenTTL := getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480)

	return Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		StoreName:            getEnv("STORE_NAME", "AccraPOS"),
		ReceiptFooter:        getEnv("RECEIPT_FOOTER", "Thank you, come again"),
		SuggestionTTLSeconds: suggestionTTL,
		CommitTimeoutSeconds: commitTimeout,
		AuthSecret:           strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMin:    tokenTTL,
		ManagerPIN:           strings.TrimSpace(os.Getenv("MANAGER_PIN")),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SuggestionTTL() time.Duration {
	return time.Duration(c.SuggestionTTLSeconds) * time.Second
}

func (c Config) CommitTimeout() time.Duration {
	return time.Duration(c.CommitTimeoutSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
