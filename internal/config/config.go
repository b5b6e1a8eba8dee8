package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Gallery drop methods understood by the re-identifier
const (
	DropRandom = "drop_random"
	DropOldest = "drop_oldest"
	DropNone   = "drop_none"
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

	// Video sources
	// EntryVideo feeds the gallery, ExitVideo is re-identified against it
	EntryVideo     string
	ExitVideo      string
	VideoQueueSize int
	VideoOpenRetry int

	// Object detection
	DetectorModelID    string
	DetectorModel      string
	DetectorConfig     string
	DetectorLabelsFile string
	DetectorInputSize  int
	DetectionThreshold float64
	TrackLabels        []string

	// OpenCV DNN acceleration
	DNNBackend string
	DNNTarget  string

	// Centroid tracking
	TrackerMinInertia       int
	TrackerDeregisterFrames int
	TrackerMaxDistance      float64

	// Re-identification
	ReIDModelID       string
	ReIDModel         string
	ReIDInputWidth    int
	ReIDInputHeight   int
	GalleryLimit      int
	GalleryDropMethod string

	// NATS (identity events)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	EventsSubject      string

	// Stream output
	OutputQuality int
	ShowFPS       bool

	// Recording of the composite stream
	RecordEnabled       bool
	RecordDir           string
	RecordCodec         string
	RecordFPS           float64
	RecordChunkDuration time.Duration
	RecordMaxChunks     int
	RecordSubject       string

	// gRPC health service, 0 disables it
	GRPCHealthPort int

	// Swagger Configuration
	SwaggerHost string

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
		WorkerID:    getEnv("WORKER_ID", "reid-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Video sources
		EntryVideo:     getEnv("ENTRY_VIDEO", "videos/sample.mkv"),
		ExitVideo:      getEnv("EXIT_VIDEO", "videos/sample.mkv"),
		VideoQueueSize: getEnvInt("VIDEO_QUEUE_SIZE", 128),
		VideoOpenRetry: getEnvInt("VIDEO_OPEN_RETRY", 0),

		// Object detection
		DetectorModelID:    getEnv("DETECTOR_MODEL_ID", "alwaysai/ssd_mobilenet_v1_coco_2018_01_28"),
		DetectorModel:      getEnv("DETECTOR_MODEL", "models/ssd_mobilenet_v1_coco_2018_01_28/frozen_inference_graph.pb"),
		DetectorConfig:     getEnv("DETECTOR_CONFIG", "models/ssd_mobilenet_v1_coco_2018_01_28/ssd_mobilenet_v1_coco_2018_01_28.pbtxt"),
		DetectorLabelsFile: getEnv("DETECTOR_LABELS_FILE", ""),
		DetectorInputSize:  getEnvInt("DETECTOR_INPUT_SIZE", 300),
		DetectionThreshold: getEnvFloat("DETECTION_CONFIDENCE", 0.5),
		TrackLabels:        getEnvList("TRACK_LABELS", []string{"person"}),

		// DNN acceleration
		DNNBackend: getEnv("DNN_BACKEND", "default"),
		DNNTarget:  getEnv("DNN_TARGET", "cpu"),

		// Centroid tracking
		TrackerMinInertia:       getEnvInt("TRACKER_MIN_INERTIA", 5),
		TrackerDeregisterFrames: getEnvInt("TRACKER_DEREGISTER_FRAMES", 5),
		TrackerMaxDistance:      getEnvFloat("TRACKER_MAX_DISTANCE", 50),

		// Re-identification
		ReIDModelID:       getEnv("REID_MODEL_ID", "alwaysai/re_id"),
		ReIDModel:         getEnv("REID_MODEL", "models/re_id/osnet_x1_0.onnx"),
		ReIDInputWidth:    getEnvInt("REID_INPUT_WIDTH", 128),
		ReIDInputHeight:   getEnvInt("REID_INPUT_HEIGHT", 256),
		GalleryLimit:      getEnvInt("GALLERY_LIMIT", 100),
		GalleryDropMethod: getEnv("GALLERY_DROP_METHOD", DropRandom),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		EventsSubject:      getEnv("EVENTS_SUBJECT", "reid.events"),

		// Stream output
		OutputQuality: getEnvInt("OUTPUT_QUALITY", 90),
		ShowFPS:       getEnvBool("SHOW_FPS", true),

		// Recording
		RecordEnabled:       getEnvBool("RECORD_ENABLED", false),
		RecordDir:           getEnv("RECORD_DIR", "recordings"),
		RecordCodec:         getEnv("RECORD_CODEC", "MJPG"),
		RecordFPS:           getEnvFloat("RECORD_FPS", 15),
		RecordChunkDuration: getEnvDuration("RECORD_CHUNK_DURATION", 60*time.Second),
		RecordMaxChunks:     getEnvInt("RECORD_MAX_CHUNKS", 10),
		RecordSubject:       getEnv("RECORD_SUBJECT", "reid.recordings"),

		GRPCHealthPort: getEnvInt("GRPC_HEALTH_PORT", 50051),

		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports the first setting that cannot drive the pipeline
func (c *Config) Validate() error {
	var errs []error

	if c.EntryVideo == "" || c.ExitVideo == "" {
		errs = append(errs, errors.New("ENTRY_VIDEO and EXIT_VIDEO must be set"))
	}
	if c.DetectionThreshold < 0 || c.DetectionThreshold > 1 {
		errs = append(errs, fmt.Errorf("DETECTION_CONFIDENCE %.2f out of range [0,1]", c.DetectionThreshold))
	}
	if len(c.TrackLabels) == 0 {
		errs = append(errs, errors.New("TRACK_LABELS must name at least one label"))
	}
	if c.TrackerMinInertia < 1 {
		errs = append(errs, fmt.Errorf("TRACKER_MIN_INERTIA must be >= 1, got %d", c.TrackerMinInertia))
	}
	if c.TrackerDeregisterFrames < 0 {
		errs = append(errs, fmt.Errorf("TRACKER_DEREGISTER_FRAMES must be >= 0, got %d", c.TrackerDeregisterFrames))
	}
	if c.TrackerMaxDistance <= 0 {
		errs = append(errs, fmt.Errorf("TRACKER_MAX_DISTANCE must be > 0, got %.1f", c.TrackerMaxDistance))
	}
	if c.GalleryLimit < 1 {
		errs = append(errs, fmt.Errorf("GALLERY_LIMIT must be >= 1, got %d", c.GalleryLimit))
	}
	switch c.GalleryDropMethod {
	case DropRandom, DropOldest, DropNone:
	default:
		errs = append(errs, fmt.Errorf("unknown GALLERY_DROP_METHOD %q", c.GalleryDropMethod))
	}
	if c.OutputQuality < 1 || c.OutputQuality > 100 {
		errs = append(errs, fmt.Errorf("OUTPUT_QUALITY must be in [1,100], got %d", c.OutputQuality))
	}

	if c.RecordEnabled && len(c.RecordCodec) != 4 {
		errs = append(errs, fmt.Errorf("RECORD_CODEC must be a four character code, got %q", c.RecordCodec))
	}

	return errors.Join(errs...)
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

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

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
