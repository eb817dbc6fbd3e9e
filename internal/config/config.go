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
	DBUser              string
	DBPassword          string
	DBName              string
	DBHost              string
	DBPort              string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	BotToken            string
	BotUsername         string
	SupergroupID        int64
	HTTPAddr            string
	LogProduction       bool
	SchedulerInterval   time.Duration
	MetricsAllowedCIDRs []string
	BunnyCDNHostname    string
	BunnyTokenKey       string
	ShrinkMeAPIURL      string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "zonarated_bot"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		BotToken:            getEnv("TELEGRAM_BOT_TOKEN", ""),
		BotUsername:         getEnv("BOT_USERNAME", "zonarated_bot"),
		SupergroupID:        getEnvInt64("SUPERGROUP_ID", 0),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		LogProduction:       getEnvBool("LOG_PRODUCTION", false),
		SchedulerInterval:   getEnvDuration("SCHEDULER_INTERVAL", 60*time.Second),
		MetricsAllowedCIDRs: getEnvList("METRICS_ALLOWED_CIDRS"),
		BunnyCDNHostname:    getEnv("BUNNY_CDN_HOSTNAME", ""),
		BunnyTokenKey:       getEnv("BUNNY_TOKEN_KEY", ""),
		ShrinkMeAPIURL:      getEnv("SHRINKME_API_URL", "https://shrinkme.io/api"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
