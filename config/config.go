package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	DetectorRemote = "remote"
	DetectorLocal  = "local"
)

type Config struct {
	TelegramToken string

	StoreDriver string // file | sqlite | memory
	DataDir     string
	PhotoDir    string

	DetectorDriver      string // remote | local
	DetectorEndpoint    string
	DetectorModel       string
	DetectorTimeout     time.Duration
	DetectorStrictParse bool   // неразборчивый ответ детектора считать ошибкой
	DetectorAPIKey      string // стартовый ключ, если в настройках он пуст

	HTTPAddr string
	LogDir   string
}

// Load читает .env (если он есть) и переменные окружения.
func Load(envFiles ...string) (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load(envFiles...)

	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))

	cfg := &Config{
		TelegramToken:       os.Getenv("TELEGRAM_TOKEN"),
		StoreDriver:         strings.ToLower(getEnv("STORE_DRIVER", StoreFile)),
		DataDir:             dataDir,
		PhotoDir:            getEnv("PHOTO_DIR", filepath.Join(dataDir, "photos")),
		DetectorDriver:      strings.ToLower(getEnv("DETECTOR_DRIVER", DetectorRemote)),
		DetectorEndpoint:    getEnv("DETECTOR_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		DetectorModel:       getEnv("DETECTOR_MODEL", "gpt-4o-mini"),
		DetectorTimeout:     getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		DetectorStrictParse: getEnvAsBool("DETECTOR_STRICT_PARSE", false),
		DetectorAPIKey:      os.Getenv("DETECTOR_API_KEY"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		LogDir:              os.Getenv("LOG_DIR"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		// голое число трактуем как секунды
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
