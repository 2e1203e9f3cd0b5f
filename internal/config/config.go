// Package config reads process settings from the environment, loading a
// .env file first when one exists.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port     string
	HostCode string
	LogLevel string
	AppEnv   string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	JWTSecret      string
	JWTExpiresDays int
	CookieName     string

	// CORSOrigins is empty when every origin is allowed.
	CORSOrigins []string

	TossupReveal time.Duration
	FinalTick    time.Duration

	// PuzzleCSV optionally names a category,answer file imported at startup.
	PuzzleCSV     string
	PuzzleCSVPack string
}

func (c Config) Production() bool { return c.AppEnv == "production" }

// Load reads .env (a missing file is fine) and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("[config] could not read .env")
	}

	return Config{
		Port:     getEnv("PORT", "5000"),
		HostCode: getEnv("HOST_CODE", "holiday"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppEnv:   getEnv("APP_ENV", "development"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", "puzzles.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      getEnv("JWT_SECRET", "dev"),
		JWTExpiresDays: getEnvInt("JWT_EXPIRES_DAYS", 30),
		CookieName:     getEnv("COOKIE_NAME", "hw_session"),

		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),

		TossupReveal: time.Duration(getEnvInt("TOSSUP_REVEAL_MS", 1200)) * time.Millisecond,
		FinalTick:    time.Duration(getEnvInt("FINAL_TICK_MS", 1000)) * time.Millisecond,

		PuzzleCSV:     os.Getenv("PUZZLE_CSV"),
		PuzzleCSVPack: getEnv("PUZZLE_CSV_PACK", "Imported"),
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("[config] invalid number, using default")
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
