package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location relative to the working dir.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
	LogsDir  string `yaml:"logsDir"`

	DatabaseURL string `yaml:"databaseURL"`
	StorageDir  string `yaml:"storageDir"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	AIServiceURL            string `yaml:"aiServiceURL"`
	ExtractTimeoutSeconds   int    `yaml:"extractTimeoutSeconds"`
	GenerateTimeoutSeconds  int    `yaml:"generateTimeoutSeconds"`
	TitleTimeoutSeconds     int    `yaml:"titleTimeoutSeconds"`
	DeleteChunksTimeoutSecs int    `yaml:"deleteChunksTimeoutSeconds"`

	IdentityJWKSURL      string `yaml:"identityJwksURL"`
	IdentityIssuer       string `yaml:"identityIssuer"`
	IdentityAudience     string `yaml:"identityAudience"`
	IdentityAdminURL     string `yaml:"identityAdminURL"`
	IdentityServiceToken string `yaml:"identityServiceToken"`

	SMTPHost     string `yaml:"smtpHost"`
	SMTPPort     int    `yaml:"smtpPort"`
	SMTPUsername string `yaml:"smtpUsername"`
	SMTPPassword string `yaml:"smtpPassword"`
	SMTPFrom     string `yaml:"smtpFrom"`

	ConvertBinary         string `yaml:"convertBinary"`
	ConvertTimeoutSeconds int    `yaml:"convertTimeoutSeconds"`

	CleanupStream      string `yaml:"cleanupStream"`
	CleanupGroup       string `yaml:"cleanupGroup"`
	CleanupConcurrency int    `yaml:"cleanupConcurrency"`
	CleanupMaxRetries  int    `yaml:"cleanupMaxRetries"`

	OTPRateLimit         int `yaml:"otpRateLimit"`
	OTPRateWindowSeconds int `yaml:"otpRateWindowSeconds"`

	TrustedProxies []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("LOGS_DIR"); v != "" {
		cfg.LogsDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("AI_SERVICE_URL"); v != "" {
		cfg.AIServiceURL = v
	}
	if v := os.Getenv("IDENTITY_JWKS_URL"); v != "" {
		cfg.IdentityJWKSURL = v
	}
	if v := os.Getenv("IDENTITY_ADMIN_URL"); v != "" {
		cfg.IdentityAdminURL = v
	}
	if v := os.Getenv("IDENTITY_SERVICE_TOKEN"); v != "" {
		cfg.IdentityServiceToken = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SMTPPort = n
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.SMTPUsername = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTPPassword = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.SMTPFrom = v
	}
	if v := os.Getenv("CONVERT_BINARY"); v != "" {
		cfg.ConvertBinary = v
	}
	if v := os.Getenv("CLEANUP_STREAM"); v != "" {
		cfg.CleanupStream = v
	}
	if v := os.Getenv("CLEANUP_GROUP"); v != "" {
		cfg.CleanupGroup = v
	}
	if v := os.Getenv("CLEANUP_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CleanupConcurrency = n
		}
	}
	if v := os.Getenv("CLEANUP_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CleanupMaxRetries = n
		}
	}
	if v := os.Getenv("OTP_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OTPRateLimit = n
		}
	}
	if v := os.Getenv("OTP_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OTPRateWindowSeconds = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.StorageDir == "" {
		return errors.New("config: storageDir is required (set in config.yaml or STORAGE_DIR)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.AIServiceURL == "" {
		return errors.New("config: aiServiceURL is required (set in config.yaml or AI_SERVICE_URL)")
	}
	if cfg.IdentityJWKSURL == "" {
		return errors.New("config: identityJwksURL is required (set in config.yaml or IDENTITY_JWKS_URL)")
	}
	if cfg.ExtractTimeoutSeconds < 0 || cfg.GenerateTimeoutSeconds < 0 ||
		cfg.TitleTimeoutSeconds < 0 || cfg.DeleteChunksTimeoutSecs < 0 {
		return errors.New("config: AI timeouts must be >= 0")
	}
	if cfg.ConvertTimeoutSeconds < 0 {
		return errors.New("config: convertTimeoutSeconds must be >= 0")
	}
	if cfg.CleanupConcurrency < 0 {
		return errors.New("config: cleanupConcurrency must be >= 0")
	}
	if cfg.OTPRateLimit < 0 || cfg.OTPRateWindowSeconds < 0 {
		return errors.New("config: OTP rate limit settings must be >= 0")
	}
	return nil
}
