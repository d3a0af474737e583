package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFileName is read from the working directory before Load when present.
const EnvFileName = "config.env"

type Config struct {
	ListenAddr        string
	DBPath            string
	MediaPath         string
	InventoryName     string
	CoordinatePattern string
	MaxUploadMB       int

	AnnotationBackend  string
	GCPAPIKey          string
	GCPCredentialsFile string
	VisionURL          string
	VideoURL           string
	TesseractLanguages string
	TesseractPrep      bool
	FFmpegPath         string
	FrameStride        int
	ImageTimeout       time.Duration
	VideoTimeout       time.Duration
	PollInterval       time.Duration

	SynthBackend string
	GeminiAPIKey string
	GeminiModel  string
	ClaudeAPIKey string
	ClaudeModel  string
	OllamaHost   string
	OllamaModel  string

	SessionTTL   time.Duration
	SessionSweep time.Duration

	LogLevel  string
	LogFile   string
	LogFormat string
}

func Load() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "/data/freezerinv.db"),
		MediaPath:         getEnv("MEDIA_PATH", os.TempDir()+"/freezerinv-media"),
		InventoryName:     getEnv("INVENTORY_NAME", "freezer_inventory"),
		CoordinatePattern: getEnv("COORDINATE_PATTERN", ""),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 200),

		AnnotationBackend:  getEnv("ANNOTATION_BACKEND", "auto"),
		GCPAPIKey:          getEnv("GCP_API_KEY", ""),
		GCPCredentialsFile: getEnv("GCP_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		VisionURL:          getEnv("GCP_VISION_URL", ""),
		VideoURL:           getEnv("GCP_VIDEO_URL", ""),
		TesseractLanguages: getEnv("TESSERACT_LANGUAGES", "eng"),
		TesseractPrep:      getEnvBool("TESSERACT_PREPROCESS", true),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FrameStride:        getEnvInt("FRAME_STRIDE", 30),
		ImageTimeout:       getEnvDuration("IMAGE_TIMEOUT", 15*time.Second),
		VideoTimeout:       getEnvDuration("VIDEO_TIMEOUT", 300*time.Second),
		PollInterval:       getEnvDuration("POLL_INTERVAL", 5*time.Second),

		SynthBackend: getEnv("SYNTH_BACKEND", "none"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", ""),
		ClaudeAPIKey: getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:  getEnv("CLAUDE_MODEL", ""),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_MODEL", "llama3.2"),

		SessionTTL:   getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionSweep: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// LoadEnvFile sets variables from path that are not already in the
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("ignoring invalid boolean setting", "key", key, "value", val)
		return defaultVal
	}
	return b
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("ignoring invalid duration setting", "key", key, "value", val)
	return defaultVal
}
