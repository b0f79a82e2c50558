package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/facegate/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Backend  BackendConfig
	Gateway  GatewayConfig
	Detector DetectorConfig
	Camera   CameraConfig
	Capture  CaptureConfig
	Password PasswordConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Web      WebConfig
}

type BackendConfig struct {
	URL         string // WorkFlow REST backend (e.g., http://localhost:8001)
	DatabaseURL string // MySQL DSN of the backend database, used by sync (optional)
}

type GatewayConfig struct {
	URL string // facegate gateway used by the CLI (e.g., http://localhost:8080)
}

type DetectorConfig struct {
	URL string // face embedding service, defaults to http://localhost:8000
}

type CameraConfig struct {
	URL          string // snapshot URL of an IP camera
	Dir          string // directory with recorded frames (used when URL is empty)
	MaxFrameSize int    // frames are downscaled to fit this size before detection
}

// CaptureConfig holds face detection and matching tunables.
type CaptureConfig struct {
	EmbeddingDim        int     `yaml:"embedding_dim"`
	MatchThreshold      float64 `yaml:"match_threshold"`
	MinConfidence       float64 `yaml:"min_confidence"`
	MinQuality          float64 `yaml:"min_quality"`
	DetectionIntervalMS int     `yaml:"detection_interval_ms"`
	DetectTimeoutMS     int     `yaml:"detect_timeout_ms"`
	CountdownTicks      int     `yaml:"countdown_ticks"`
	CountdownTickMS     int     `yaml:"countdown_tick_ms"`
	GuideRadiusPercent  float64 `yaml:"guide_radius_percent"`
	GuideTolerance      float64 `yaml:"guide_tolerance"`
}

// DetectionInterval returns the scanning poll interval.
func (c CaptureConfig) DetectionInterval() time.Duration {
	return time.Duration(c.DetectionIntervalMS) * time.Millisecond
}

// DetectTimeout returns the per-poll detection timeout.
func (c CaptureConfig) DetectTimeout() time.Duration {
	return time.Duration(c.DetectTimeoutMS) * time.Millisecond
}

// CountdownTick returns the duration of one countdown tick.
func (c CaptureConfig) CountdownTick() time.Duration {
	return time.Duration(c.CountdownTickMS) * time.Millisecond
}

// PasswordConfig holds password rules and strength cutoffs.
type PasswordConfig struct {
	MinLength        int    `yaml:"min_length"`
	StrongLength     int    `yaml:"strong_length"`
	RequireUppercase bool   `yaml:"require_uppercase"`
	RequireLowercase bool   `yaml:"require_lowercase"`
	RequireNumber    bool   `yaml:"require_number"`
	RequireSpecial   bool   `yaml:"require_special"`
	SpecialChars     string `yaml:"special_chars"`
	WeakMax          int    `yaml:"weak_max"`
	MediumMax        int    `yaml:"medium_max"`
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type AuthConfig struct {
	JWTSecret    string        // signs identity assertions
	AssertionTTL time.Duration // defaults to 15 minutes
}

type WebConfig struct {
	Port           int
	Host           string
	SessionSecret  string // signs session cookies (random if empty)
	AllowedOrigins string // comma-separated CORS whitelist
	TrustedProxies string // comma-separated IPs/CIDRs allowed to set X-Forwarded-For
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

type defaults struct {
	Capture  CaptureConfig  `yaml:"capture"`
	Password PasswordConfig `yaml:"password"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration string ("15m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	capture := d.Capture
	capture.EmbeddingDim = envInt("FACE_EMBEDDING_DIM", capture.EmbeddingDim)
	capture.MatchThreshold = envFloat("FACE_MATCH_THRESHOLD", capture.MatchThreshold)
	capture.MinConfidence = envFloat("FACE_MIN_CONFIDENCE", capture.MinConfidence)
	capture.MinQuality = envFloat("FACE_MIN_QUALITY", capture.MinQuality)
	capture.DetectionIntervalMS = envInt("FACE_DETECTION_INTERVAL_MS", capture.DetectionIntervalMS)
	capture.DetectTimeoutMS = envInt("FACE_DETECT_TIMEOUT_MS", capture.DetectTimeoutMS)
	capture.CountdownTickMS = envInt("FACE_COUNTDOWN_MS", capture.CountdownTickMS)

	return &Config{
		Backend: BackendConfig{
			URL:         os.Getenv("BACKEND_URL"),
			DatabaseURL: os.Getenv("BACKEND_DATABASE_URL"),
		},
		Gateway: GatewayConfig{
			URL: envString("GATEWAY_URL", "http://localhost:8080"),
		},
		Detector: DetectorConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Camera: CameraConfig{
			URL:          os.Getenv("CAMERA_URL"),
			Dir:          os.Getenv("CAMERA_DIR"),
			MaxFrameSize: envInt("CAMERA_MAX_FRAME_SIZE", constants.MaxFrameSize),
		},
		Capture:  capture,
		Password: d.Password,
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			AssertionTTL: envDuration("ASSERTION_TTL", constants.DefaultAssertionTTL),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
			TrustedProxies: os.Getenv("WEB_TRUSTED_PROXIES"),
		},
	}
}
