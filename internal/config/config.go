package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/records"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StoreFS       StoreDriver = "fs"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
	StoreRedis    StoreDriver = "redis"
)

type Config struct {
	HTTPAddr string
	BankPath string // question bank JSON

	StoreDriver StoreDriver
	StoreDSN    string // sqlite/postgres
	StorePath   string // fs base dir

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KeyPrefix   string // prefix of the four record names
	SessionSize int

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		BankPath:      envOr("BANK_PATH", "./quizzes.json"),
		StoreDriver:   StoreDriver(strings.ToLower(envOr("STORE_DRIVER", string(StoreSQLite)))),
		StoreDSN:      os.Getenv("STORE_DSN"),
		StorePath:     envOr("STORE_PATH", "./data"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		KeyPrefix:     envOr("KEY_PREFIX", records.DefaultPrefix),
		SessionSize:   envInt("SESSION_SIZE", session.DefaultSize),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
