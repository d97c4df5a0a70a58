package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Tracker collaborator (gRPC)
	TrackerGRPCURL string
	TrackerTimeout time.Duration
	MinConfidence  float64

	// Counting
	CameraRoles         string // comma separated, e.g. "ENTRY,EXIT"
	SiteLocation        string
	TrackEvictionFrames int // 0 = about one second at the source fps
	ProgressEveryFrames int
	PublishTimeout      time.Duration
	PublishQueueSize    int

	// Crossings only count near the drawn segment: the reference point must
	// project within the segment extended by LineSegmentMargin of its length,
	// and one of the two positions must be closer than LineMaxDistance pixels.
	LineSegmentGate   bool
	LineSegmentMargin float64
	LineMaxDistance   float64 // 0 = no distance limit

	// Frame decoding
	FrameWidth  int
	FrameHeight int
	JPEGQuality int

	// Live streams
	LiveRetryAttempts  int
	LiveRetryDelay     time.Duration
	LiveConnectTimeout time.Duration

	// NATS (for event and statistics broadcast)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running worker in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsSubjectPrefix  string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown

	// Persistence
	DatabasePath string

	// Redis snapshot cache (disabled when address is empty)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// WebSocket live feed
	WSWriteTimeout time.Duration
	WSSendBuffer   int

	// Metrics
	MetricsEnabled bool

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "counter-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Tracker collaborator
		TrackerGRPCURL: getEnv("TRACKER_GRPC_URL", "localhost:50052"),
		TrackerTimeout: getEnvDuration("TRACKER_TIMEOUT", 5*time.Second),
		MinConfidence:  getEnvFloat("MIN_CONFIDENCE", 0.5),

		// Counting
		CameraRoles:         getEnv("CAMERA_ROLES", "ENTRY,EXIT"),
		SiteLocation:        getEnv("SITE_LOCATION", "default"),
		TrackEvictionFrames: getEnvInt("TRACK_EVICTION_FRAMES", 0),
		ProgressEveryFrames: getEnvInt("PROGRESS_EVERY_FRAMES", 10),
		PublishTimeout:      getEnvDuration("PUBLISH_TIMEOUT", 2*time.Second),
		PublishQueueSize:    getEnvInt("PUBLISH_QUEUE_SIZE", 1024),

		LineSegmentGate:   getEnvBool("LINE_SEGMENT_GATE", true),
		LineSegmentMargin: getEnvFloat("LINE_SEGMENT_MARGIN", 0.1),
		LineMaxDistance:   getEnvFloat("LINE_MAX_DISTANCE", 25),

		// Frame decoding
		FrameWidth:  getEnvInt("FRAME_WIDTH", 672),
		FrameHeight: getEnvInt("FRAME_HEIGHT", 448),
		JPEGQuality: getEnvInt("JPEG_QUALITY", 85),

		// Live streams
		LiveRetryAttempts:  getEnvInt("LIVE_RETRY_ATTEMPTS", 5),
		LiveRetryDelay:     getEnvDuration("LIVE_RETRY_DELAY", 2*time.Second),
		LiveConnectTimeout: getEnvDuration("LIVE_CONNECT_TIMEOUT", 10*time.Second),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", true),
		NatsURL:            getNatsURL(),
		NatsSubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "counting"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// Persistence
		DatabasePath: getEnv("DATABASE_PATH", "counting.db"),

		// Redis
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "counting"),

		// WebSocket
		WSWriteTimeout: getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSSendBuffer:   getEnvInt("WS_SEND_BUFFER", 64),

		// Metrics
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	// Check for Docker-specific environment indicators
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
