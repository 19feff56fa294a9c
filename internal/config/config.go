package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully resolved set of options recognized by the service.
type Config struct {
	// Document store
	MongoURL string
	DBName   string

	// Upstream feed
	UpstreamURL       string
	UpstreamQueueSize int
	MaxReconnects     int // 0 = unlimited

	// REST / WebSocket listener
	ListenAddress string
	CORSOrigins   string

	// Schema registry
	SchemaDir string

	// Worker pools
	PersistWorkers int
	VerifyWorkers  int

	// Broadcaster
	BroadcastBuffer int
	HeartbeatEvery  time.Duration

	// Retention (0 means "no TTL")
	RetentionSnapshotsDays int
	RetentionEventsDays    int
	RetentionTicksDays     int
	RetentionIndicesDays   int

	// Store call deadline / shutdown drain
	StoreTimeout  time.Duration
	ShutdownDrain time.Duration

	LogLevel string
}

// Load reads configuration from the environment (and an optional .env file).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		MongoURL: envStr("MONGO_URL", "mongodb://localhost:27017"),
		DBName:   envStr("DB_NAME", "rugfeed"),

		UpstreamURL:       envStr("RUGS_UPSTREAM_URL", "wss://backend.rugs.fun/socket.io/?frontend-version=1.0"),
		UpstreamQueueSize: envInt("UPSTREAM_QUEUE_SIZE", 4096),
		MaxReconnects:     envInt("MAX_RECONNECTS", 0),

		ListenAddress: envStr("LISTEN_ADDRESS", "0.0.0.0:8001"),
		CORSOrigins:   envStr("CORS_ORIGINS", "*"),

		SchemaDir: envStr("SCHEMA_DIR", "schemas"),

		PersistWorkers: envInt("PERSIST_WORKERS", 4),
		VerifyWorkers:  envInt("VERIFY_WORKERS", 2),

		BroadcastBuffer: envInt("BROADCAST_BUFFER", 256),
		HeartbeatEvery:  time.Duration(envInt("HEARTBEAT_SEC", 30)) * time.Second,

		RetentionSnapshotsDays: envInt("RETENTION_SNAPSHOTS_DAYS", 10),
		RetentionEventsDays:    envInt("RETENTION_EVENTS_DAYS", 30),
		RetentionTicksDays:     envInt("RETENTION_TICKS_DAYS", 0),
		RetentionIndicesDays:   envInt("RETENTION_INDICES_DAYS", 0),

		StoreTimeout:  time.Duration(envInt("STORE_TIMEOUT_SEC", 5)) * time.Second,
		ShutdownDrain: time.Duration(envInt("SHUTDOWN_DRAIN_SEC", 10)) * time.Second,

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
