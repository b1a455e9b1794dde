package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Completion CompletionConfig `mapstructure:"completion"`
	LocalData  LocalDataConfig  `mapstructure:"localdata"`
	Sudo       SudoConfig       `mapstructure:"sudo"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Security   SecurityConfig   `mapstructure:"security"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds the HTTP view-surface configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BackendConfig holds the backend-as-a-service connection settings
type BackendConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ProjectID      string        `mapstructure:"project_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig holds the identity-provider settings used for cross-app
// session bridging.
type AuthConfig struct {
	Subdomain          string        `mapstructure:"subdomain"`
	Domain             string        `mapstructure:"domain"`
	SilentCheckTimeout time.Duration `mapstructure:"silent_check_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts    int           `mapstructure:"poll_max_attempts"`
}

// CompletionConfig holds the external language-model endpoint settings
type CompletionConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LocalDataConfig holds the device-local state store settings
type LocalDataConfig struct {
	Path string `mapstructure:"path"`
}

// SudoConfig holds the step-up verification settings. A RelockAfter of
// zero means the unlock never expires.
type SudoConfig struct {
	RelockAfter time.Duration `mapstructure:"relock_after"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from the environment and .env file
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "Flow")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Backend defaults
	viper.SetDefault("backend.endpoint", "")
	viper.SetDefault("backend.project_id", "")
	viper.SetDefault("backend.request_timeout", "30s")

	// Auth defaults
	viper.SetDefault("auth.subdomain", "id")
	viper.SetDefault("auth.domain", "kylrixnote.space")
	viper.SetDefault("auth.silent_check_timeout", "5s")
	viper.SetDefault("auth.poll_interval", "2s")
	viper.SetDefault("auth.poll_max_attempts", 150)

	// Completion defaults
	viper.SetDefault("completion.endpoint", "")
	viper.SetDefault("completion.api_key", "")
	viper.SetDefault("completion.model", "gemini-flash")
	viper.SetDefault("completion.timeout", "60s")

	// Local data defaults
	viper.SetDefault("localdata.path", "flow.db")

	// Sudo defaults: unlock never expires unless configured
	viper.SetDefault("sudo.relock_after", "0")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 100)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.version", "APP_VERSION")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("app.debug", "APP_DEBUG")

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Backend
	viper.BindEnv("backend.endpoint", "BACKEND_ENDPOINT")
	viper.BindEnv("backend.project_id", "BACKEND_PROJECT_ID")
	viper.BindEnv("backend.request_timeout", "BACKEND_REQUEST_TIMEOUT")

	// Auth
	viper.BindEnv("auth.subdomain", "AUTH_SUBDOMAIN")
	viper.BindEnv("auth.domain", "AUTH_DOMAIN")
	viper.BindEnv("auth.silent_check_timeout", "AUTH_SILENT_CHECK_TIMEOUT")
	viper.BindEnv("auth.poll_interval", "AUTH_POLL_INTERVAL")
	viper.BindEnv("auth.poll_max_attempts", "AUTH_POLL_MAX_ATTEMPTS")

	// Completion
	viper.BindEnv("completion.endpoint", "COMPLETION_ENDPOINT")
	viper.BindEnv("completion.api_key", "COMPLETION_API_KEY")
	viper.BindEnv("completion.model", "COMPLETION_MODEL")
	viper.BindEnv("completion.timeout", "COMPLETION_TIMEOUT")

	// Local data
	viper.BindEnv("localdata.path", "LOCALDATA_PATH")

	// Sudo
	viper.BindEnv("sudo.relock_after", "SUDO_RELOCK_AFTER")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output", "LOG_OUTPUT")

	// Security
	viper.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	viper.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	viper.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func validateConfig(cfg *Config) error {
	if cfg.Backend.Endpoint == "" {
		return fmt.Errorf("backend endpoint is required")
	}

	if cfg.Backend.ProjectID == "" {
		return fmt.Errorf("backend project id is required")
	}

	if cfg.Auth.Subdomain == "" || cfg.Auth.Domain == "" {
		return fmt.Errorf("identity provider subdomain and domain are required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Auth.PollInterval <= 0 {
		return fmt.Errorf("auth poll interval must be positive")
	}

	return nil
}

// Origin returns the identity provider origin used for the allow-list
// on bridge messages.
func (cfg *AuthConfig) Origin() string {
	return fmt.Sprintf("https://%s.%s", cfg.Subdomain, cfg.Domain)
}

// LoginURL returns the identity provider login page opened in the
// centered popup.
func (cfg *AuthConfig) LoginURL() string {
	return cfg.Origin() + "/login"
}

// SilentCheckURL returns the hidden-frame endpoint that reports session
// status without user interaction.
func (cfg *AuthConfig) SilentCheckURL() string {
	return cfg.Origin() + "/silent-check"
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
