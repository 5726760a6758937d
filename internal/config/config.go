package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"plantaton/internal/logger"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	AppPort          string
	Storage          string
	DatabaseURL      string
	BotToken         string
	BotUsername      string
	JWTSecret        string
	AdminTelegramIDs []int64 // tg id админов через запятую
	AdminBotEnabled  bool
	AdminCode        string
	WebAppURL        string
	DevMode          bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool

	SettingsDefaultsFile string

	// Rate limits
	APIRateLimit     int
	APIRateWindow    time.Duration
	AuthRateLimit    int
	AuthRateWindow   time.Duration
	ActionRateLimit  int
	ActionRateWindow time.Duration
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	storage := strings.ToLower(getEnv("STORAGE", StoragePostgres))
	if storage != StoragePostgres && storage != StorageMemory {
		logger.Fatal("STORAGE must be postgres or memory", "storage", storage)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && storage == StoragePostgres {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	devMode := os.Getenv("DEV_MODE") == "true"

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" && !devMode {
		logger.Fatal("BOT_TOKEN is not set")
	}

	// Проверка тг id админов !! ЧЕРЕЗ ЗАПЯТУЮ В ENV !!
	var adminIDs []int64
	if adminIDsStr := os.Getenv("ADMIN_TELEGRAM_IDS"); adminIDsStr != "" {
		for _, idStr := range strings.Split(adminIDsStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				adminIDs = append(adminIDs, id)
			}
		}
	}

	return &Config{
		AppPort:          getEnv("APP_PORT", "8080"),
		Storage:          storage,
		DatabaseURL:      dbURL,
		BotToken:         botToken,
		BotUsername:      getEnv("BOT_USERNAME", "PlantaTONBot"),
		JWTSecret:        jwtSecret,
		AdminTelegramIDs: adminIDs,
		AdminBotEnabled:  os.Getenv("ADMIN_BOT_ENABLED") == "true",
		AdminCode:        os.Getenv("ADMIN_CODE"),
		WebAppURL:        strings.TrimRight(getEnv("WEBAPP_URL", "https://plantaton.app"), "/"),
		DevMode:          devMode,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",

		SettingsDefaultsFile: os.Getenv("SETTINGS_DEFAULTS_FILE"),

		APIRateLimit:     getInt("API_RATE_LIMIT", 120),
		APIRateWindow:    getSeconds("API_RATE_WINDOW_SECONDS", time.Minute),
		AuthRateLimit:    getInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:   getSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute),
		ActionRateLimit:  getInt("ACTION_RATE_LIMIT", 60), // макс действий за ->
		ActionRateWindow: getSeconds("ACTION_RATE_WINDOW_SECONDS", time.Minute),
	}
}

// IsAdminTelegramID reports whether tgID is listed in ADMIN_TELEGRAM_IDS.
func (c *Config) IsAdminTelegramID(tgID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getSeconds(key string, def time.Duration) time.Duration {
	if n := getInt(key, -1); n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
