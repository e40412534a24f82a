package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultEnvFile     = ".env"
	DefaultSessionFile = "session.json"
	DefaultDownloadDir = "downloads"
)

// Config holds the CLI configuration
type Config struct {
	APIID            int
	APIHash          string
	SessionPath      string
	Phone            string
	Password         string
	Target           string
	DownloadDir      string
	ProxyURL         string
	ProxyEnabled     bool
	ProxyHost        string
	ProxyPort        string
	ProxyUser        string
	ProxyPass        string
	LogLevel         string
	SkipVersionCheck bool
	TelemetryEnabled *bool // Pointer to distinguish between unset (nil) and explicitly set (true/false)

	rawAPIID string
}

// required lists the fields that must be present before a network call is attempted.
// The env tag is used as the field name in validation errors.
type required struct {
	APIID   string `env:"TELEGRAM_API_ID" validate:"required,number"`
	APIHash string `env:"TELEGRAM_API_HASH" validate:"required"`
	Target  string `env:"TELEGRAM_TARGET" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}

// Load reads the configuration from the environment, after loading envFile into it.
//
// A missing envFile is not an error. Variables already set in the environment
// win over the file. Relative defaults (session file, download directory) are
// resolved next to envFile, the way the script always kept them together.
func Load(envFile string) (*Config, error) {
	baseDir := "."
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		baseDir = filepath.Dir(envFile)
	}

	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	v.SetDefault("session", filepath.Join(baseDir, DefaultSessionFile))
	v.SetDefault("downloaddir", filepath.Join(baseDir, DefaultDownloadDir))
	v.SetDefault("loglevel", "info")

	config := &Config{
		rawAPIID:         strings.TrimSpace(v.GetString("apiid")),
		APIHash:          strings.TrimSpace(v.GetString("apihash")),
		SessionPath:      v.GetString("session"),
		Phone:            strings.TrimSpace(v.GetString("phone")),
		Password:         v.GetString("password"),
		Target:           strings.TrimSpace(v.GetString("target")),
		DownloadDir:      v.GetString("downloaddir"),
		ProxyURL:         strings.TrimSpace(v.GetString("proxy")),
		ProxyEnabled:     isTruthy(v.GetString("proxyenabled")),
		ProxyHost:        v.GetString("proxyhost"),
		ProxyPort:        v.GetString("proxyport"),
		ProxyUser:        v.GetString("proxyuser"),
		ProxyPass:        v.GetString("proxypass"),
		LogLevel:         v.GetString("loglevel"),
		SkipVersionCheck: isTruthy(v.GetString("skipversioncheck")),
	}

	if id, err := strconv.Atoi(config.rawAPIID); err == nil {
		config.APIID = id
	}

	if envVal := os.Getenv(EnvTelemetryDisabled); envVal != "" {
		telemetryEnabled := !isTruthy(envVal)
		config.TelemetryEnabled = &telemetryEnabled
	}

	slog.Debug("Config loaded",
		"envFile", envFile,
		"session", config.SessionPath,
		"downloadDir", config.DownloadDir,
		"target", config.Target,
		"proxyConfigured", config.ProxyURL != "" || config.ProxyEnabled,
	)

	return config, nil
}

// Validate checks that the fields needed to talk to Telegram are present
func (c *Config) Validate() error {
	err := validate.Struct(required{
		APIID:   c.rawAPIID,
		APIHash: c.APIHash,
		Target:  c.Target,
	})
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		fe := fieldErrs[0]
		switch fe.Tag() {
		case "number":
			return fmt.Errorf("%s must be an integer, got %q", fe.Field(), fe.Value())
		default:
			if desc := GetEnvKeyDescription(fe.Field()); desc != "" {
				return fmt.Errorf("missing %s: %s", fe.Field(), desc)
			}
			return fmt.Errorf("missing %s", fe.Field())
		}
	}

	id, err := strconv.Atoi(c.rawAPIID)
	if err != nil || id <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", EnvAPIID, c.rawAPIID)
	}
	c.APIID = id

	return nil
}

// ResolveDownloadDir returns the absolute download directory and checks that it exists
func (c *Config) ResolveDownloadDir() (string, error) {
	dir, err := expandHome(c.DownloadDir)
	if err != nil {
		return "", err
	}

	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download directory: %w", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("download directory does not exist: %s", dir)
		}
		return "", fmt.Errorf("failed to access download directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("download directory is not a directory: %s", dir)
	}

	return dir, nil
}

// ResolveProxy returns the proxy to dial through, or nil for a direct connection.
// TELEGRAM_PROXY takes precedence over the PROXY_* parts.
func (c *Config) ResolveProxy(noProxy bool) (*Proxy, error) {
	if noProxy {
		return nil, nil
	}

	raw := c.ProxyURL
	if raw == "" {
		raw = c.partsProxyURL()
	}

	return ParseProxy(raw)
}

// IsTelemetryEnabled returns whether telemetry is enabled.
// Returns true by default if not explicitly set (opt-out model).
func (c *Config) IsTelemetryEnabled() bool {
	if c.TelemetryEnabled != nil {
		return *c.TelemetryEnabled
	}
	return true
}

// GetLogLevel returns the configured log level as slog.Level
// Defaults to Info if not set or invalid
func (c *Config) GetLogLevel() slog.Level {
	if c.LogLevel == "" {
		return slog.LevelInfo
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}

	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}

// Context key for storing config
type contextKey string

const configContextKey contextKey = "config"

// GetConfigFromContext retrieves the config from the command context
func GetConfigFromContext(cmd *cobra.Command) (*Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, fmt.Errorf("no context available")
	}

	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("config not found in context")
	}

	return cfg, nil
}

// GetContextKey returns the context key used for storing config
// This is needed by root.go to store the config in context
func GetContextKey() interface{} {
	return configContextKey
}
