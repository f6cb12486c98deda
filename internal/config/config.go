package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Env holds the process environment the tool depends on.
type Env struct {
	Locale      string
	AppPath     string
	BasePath    string
	PublicPath  string
	StoragePath string
	WorkerCount int
}

// LoadEnv reads .env (when present) and the environment.
func LoadEnv() *Env {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	base := getEnv("BASE_PATH", "")
	if base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		} else {
			base = "."
		}
	}

	return &Env{
		Locale:      getEnv("APP_LOCALE", "en"),
		BasePath:    base,
		AppPath:     getEnv("APP_PATH", filepath.Join(base, "app")),
		PublicPath:  getEnv("PUBLIC_PATH", filepath.Join(base, "public")),
		StoragePath: getEnv("STORAGE_PATH", filepath.Join(base, "storage")),
		WorkerCount: getEnvInt("WORKER_COUNT", 4),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
