package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// AI service (OpenRouter-compatible chat completions)
	AIAPIKey string
	AIModel  string

	// Telegram delivery
	BotToken string
	AdminIDs []int64

	// Scheduler
	ReminderHour        int
	GoalAchieverRoundUp bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "meditation_bot"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		AIAPIKey: getEnv("AI_API_KEY", ""),
		AIModel:  getEnv("AI_MODEL", "anthropic/claude-3-haiku"),

		BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminIDs: getEnvInt64List("ADMIN_IDS"),

		ReminderHour:        getEnvInt("REMINDER_HOUR", 9),
		GoalAchieverRoundUp: getEnvBool("GOAL_ACHIEVER_ROUND_UP", false),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt64List(key string) []int64 {
	var ids []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Skipping invalid id %q in %s", part, key)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
