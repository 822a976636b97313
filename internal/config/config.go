package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Engine holds every tunable of the game engine. All values come from the
// environment with the documented defaults; a missing .env is not an error.
type Engine struct {
	Port string

	IdleAfter      time.Duration // activity silence before a player turns idle
	AFKAfter       time.Duration // total inactivity before afk, focus-independent
	HeartbeatEvery time.Duration
	WeakAfter      time.Duration // since last heartbeat
	TimeoutAfter   time.Duration
	GracePeriod    time.Duration // reconnection window after a timeout

	ComboBreakAfter time.Duration
	RoomStaleAfter  time.Duration
	CleanupEvery    time.Duration

	TrieTTL        time.Duration
	SolveTTL       time.Duration
	SolveCacheMax  int
	WorkerTimeout  time.Duration
	WorkerQueueMax int

	LeaderboardThrottle time.Duration
	RateLimitRPS        int
	RateLimitBurst      int

	DictionaryDir string
	ResultsDB     string
	RedisAddr     string // empty disables redis fan-out and aggregates
	ValidateURL   string // empty disables the community/AI lookup
}

// Load reads .env (if present) and the process environment.
func Load() *Engine {
	_ = godotenv.Load()

	return &Engine{
		Port: getEnvString("PORT", "8080"),

		IdleAfter:      getEnvDuration("PRESENCE_IDLE_AFTER", 30*time.Second),
		AFKAfter:       getEnvDuration("PRESENCE_AFK_AFTER", 45*time.Second),
		HeartbeatEvery: getEnvDuration("HEARTBEAT_PERIOD", 10*time.Second),
		WeakAfter:      getEnvDuration("CONN_WEAK_AFTER", 15*time.Second),
		TimeoutAfter:   getEnvDuration("CONN_TIMEOUT_AFTER", 30*time.Second),
		GracePeriod:    getEnvDuration("RECONNECT_GRACE", 60*time.Second),

		ComboBreakAfter: getEnvDuration("COMBO_BREAK_AFTER", 10*time.Second),
		RoomStaleAfter:  getEnvDuration("ROOM_STALE_AFTER", 30*time.Minute),
		CleanupEvery:    getEnvDuration("CLEANUP_INTERVAL", 1*time.Minute),

		TrieTTL:        getEnvDuration("TRIE_TTL", 30*time.Minute),
		SolveTTL:       getEnvDuration("SOLVE_TTL", 10*time.Minute),
		SolveCacheMax:  getEnvInt("SOLVE_CACHE_MAX", 200),
		WorkerTimeout:  getEnvDuration("WORKER_TIMEOUT", 5*time.Second),
		WorkerQueueMax: getEnvInt("WORKER_QUEUE_MAX", 1000),

		LeaderboardThrottle: getEnvDuration("LEADERBOARD_THROTTLE", 500*time.Millisecond),
		RateLimitRPS:        getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 10),

		DictionaryDir: getEnvString("DICTIONARY_DIR", "data/dictionaries"),
		ResultsDB:     getEnvString("RESULTS_DB", "data/results.db"),
		RedisAddr:     getEnvString("REDIS_ADDR", ""),
		ValidateURL:   getEnvString("VALIDATE_URL", ""),
	}
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Warn().Str("key", key).Err(err).Dur("default", fallback).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Str("key", key).Err(err).Int("default", fallback).Msg("invalid int, using default")
		return fallback
	}
	return i
}
