package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Pipeline PipelineConfig
	Vision   VisionConfig
	Fetcher  FetcherConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// PipelineConfig holds the frame pipeline configuration.
// SceneThreshold is the scene-change sensitivity (0,1); lower samples more
// frames. HashDistance is the Hamming bound at or below which two frames are
// duplicates; 0 disables dedup. Workers bounds concurrent backend queries
// within one scan; MaxConcurrent bounds scans dispatched across all workers.
type PipelineConfig struct {
	SceneThreshold float64
	HashDistance   int
	Workers        int
	MaxConcurrent  int
	KeepArtifacts  bool
	TempDir        string
	FFmpegPath     string
	FFprobePath    string
	MaxFrames      int
}

// VisionConfig holds vision backend configuration
type VisionConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// FetcherConfig holds clip acquisition configuration
type FetcherConfig struct {
	YtdlpPath   string
	CookiesFile string
	Timeout     time.Duration
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// MetricsConfig holds the metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "clipscan")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "artifacts")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Pipeline defaults
	viper.SetDefault("pipeline.sceneThreshold", 0.05)
	viper.SetDefault("pipeline.hashDistance", 10)
	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.maxConcurrent", 4)
	viper.SetDefault("pipeline.keepArtifacts", false)
	viper.SetDefault("pipeline.tempDir", "/tmp/clipscan")
	viper.SetDefault("pipeline.ffmpegPath", "ffmpeg")
	viper.SetDefault("pipeline.ffprobePath", "ffprobe")
	viper.SetDefault("pipeline.maxFrames", 0) // 0 = unlimited

	// Vision defaults
	viper.SetDefault("vision.baseURL", "https://generativelanguage.googleapis.com")
	viper.SetDefault("vision.apiKey", "")
	viper.SetDefault("vision.model", "gemini-2.5-flash-lite")
	viper.SetDefault("vision.timeout", "60s")
	viper.SetDefault("vision.maxAttempts", 1) // no retry unless raised
	viper.SetDefault("vision.retryBaseDelay", "1s")

	// Fetcher defaults
	viper.SetDefault("fetcher.ytdlpPath", "yt-dlp")
	viper.SetDefault("fetcher.cookiesFile", "") // optional
	viper.SetDefault("fetcher.timeout", "5m")

	// Auth defaults
	viper.SetDefault("auth.jwtSecret", "dev-secret-change-me")
	viper.SetDefault("auth.tokenExpiry", "24h")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "clipscan")
	viper.SetDefault("tracing.jaegerEndpoint", "")
}
