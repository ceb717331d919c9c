package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port string

	// BotTokens is the ordered list of accepted bot tokens; more than one
	// allows zero-downtime token rotation.
	BotTokens []string

	StoreBackend string // sqlite | postgres | mongo | memory
	SqlitePath   string
	PostgresDSN  string
	MongoURI     string
	MongoDB      string

	RedisAddr     string
	RedisPassword string

	SubmitInterval      time.Duration
	LeaderboardMaxLimit int
	AllowedOrigins      []string
	Debug               bool
}

func Load() *Config {
	return &Config{
		Port:                getenv("PORT", "8080"),
		BotTokens:           splitList(getenv("BOT_TOKEN", "")),
		StoreBackend:        getenv("STORE_BACKEND", "sqlite"),
		SqlitePath:          getenv("SQLITE_PATH", "leaderboard.db"),
		PostgresDSN:         getenv("POSTGRES_DSN", ""),
		MongoURI:            getenv("MONGO_URI", ""),
		MongoDB:             getenv("MONGO_DB", "bugman"),
		RedisAddr:           getenv("REDIS_ADDR", ""),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		SubmitInterval:      getduration(getenv("SUBMIT_INTERVAL", "3s")),
		LeaderboardMaxLimit: getint(getenv("LEADERBOARD_MAX_LIMIT", "200")),
		AllowedOrigins:      splitList(getenv("ALLOWED_ORIGINS", "*")),
		Debug:               getenv("DEBUG", "false") == "true",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getduration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

func getint(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 200
	}
	return n
}
