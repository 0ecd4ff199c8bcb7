package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	API       APIConfig
	Poll      PollConfig
	Artifact  ArtifactConfig
	Server    ServerConfig
	Redis     RedisConfig
	R2        R2Config
	RateLimit RateLimitConfig
}

// APIConfig locates the generation backend. The base URL is resolved here,
// at the application boundary, and passed into the client explicitly.
type APIConfig struct {
	BaseURL string
	Timeout int // seconds, per request
}

// PollConfig tunes the status poll loop.
type PollConfig struct {
	InitialIntervalMs int
	Multiplier        float64
	CeilingMs         int
	Jitter            float64
	MaxWaitMs         int
}

type ArtifactConfig struct {
	Path string // empty selects the well-known default
}

// ServerConfig configures the devserver.
type ServerConfig struct {
	Port     string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type RateLimitConfig struct {
	SubmitPerHour int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("api.base_url", "AUDIOGEN_BASE_URL")
	_ = viper.BindEnv("api.timeout", "AUDIOGEN_TIMEOUT")
	_ = viper.BindEnv("poll.initial_interval_ms", "POLL_INITIAL_INTERVAL_MS")
	_ = viper.BindEnv("poll.multiplier", "POLL_MULTIPLIER")
	_ = viper.BindEnv("poll.ceiling_ms", "POLL_CEILING_MS")
	_ = viper.BindEnv("poll.jitter", "POLL_JITTER")
	_ = viper.BindEnv("poll.max_wait_ms", "POLL_MAX_WAIT_MS")
	_ = viper.BindEnv("artifact.path", "ARTIFACT_PATH")
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("ratelimit.submit_per_hour", "RATELIMIT_SUBMIT_PER_HOUR")

	// Defaults
	viper.SetDefault("api.base_url", "http://localhost:8084")
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("poll.initial_interval_ms", 1000)
	viper.SetDefault("poll.multiplier", 1.5)
	viper.SetDefault("poll.ceiling_ms", 30000)
	viper.SetDefault("poll.jitter", 0.2)
	viper.SetDefault("poll.max_wait_ms", 300000)
	viper.SetDefault("artifact.path", "")
	viper.SetDefault("server.port", "8084")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.submit_per_hour", 20)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		API: APIConfig{
			BaseURL: viper.GetString("api.base_url"),
			Timeout: viper.GetInt("api.timeout"),
		},
		Poll: PollConfig{
			InitialIntervalMs: viper.GetInt("poll.initial_interval_ms"),
			Multiplier:        viper.GetFloat64("poll.multiplier"),
			CeilingMs:         viper.GetInt("poll.ceiling_ms"),
			Jitter:            viper.GetFloat64("poll.jitter"),
			MaxWaitMs:         viper.GetInt("poll.max_wait_ms"),
		},
		Artifact: ArtifactConfig{
			Path: viper.GetString("artifact.path"),
		},
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
		},
	}

	return cfg, nil
}
