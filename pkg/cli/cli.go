// Package cli holds the command-line plumbing shared by the library binaries:
// flags with environment fallbacks, .env loading, logger setup and
// configuration loading.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yasminebenbraiek/multimedia-library-api/config"
)

// Build information
const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Flags holds the options every binary accepts
type Flags struct {
	ConfigPath      string
	EnvFile         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

// Register defines the shared flags on fs. Defaults fall back to LIBRARY_*
// environment variables.
func Register(fs *flag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.ConfigPath, "config",
		getEnv("LIBRARY_CONFIG", ""),
		"Path to a JSON or YAML configuration file; defaults apply when empty (env: LIBRARY_CONFIG)")
	fs.StringVar(&f.ConfigPath, "c",
		getEnv("LIBRARY_CONFIG", ""),
		"Path to configuration file (env: LIBRARY_CONFIG)")

	fs.StringVar(&f.EnvFile, "env-file", ".env",
		"Dotenv file loaded before configuration, ignored when missing")

	fs.StringVar(&f.LogLevel, "log-level",
		getEnv("LIBRARY_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: LIBRARY_LOG_LEVEL)")

	fs.StringVar(&f.LogFormat, "log-format",
		getEnv("LIBRARY_LOG_FORMAT", "json"),
		"Log format: json, text (env: LIBRARY_LOG_FORMAT)")

	fs.DurationVar(&f.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("LIBRARY_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: LIBRARY_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&f.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&f.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&f.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&f.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&f.Validate, "validate", false, "Validate configuration and exit")

	return f
}

// Check validates the parsed flags
func (f *Flags) Check() error {
	if f.ShowVersion || f.ShowHelp {
		return nil
	}

	if f.ConfigPath != "" {
		if _, err := os.Stat(f.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", f.ConfigPath)
		}
	}

	if !contains([]string{"debug", "info", "warn", "error"}, f.LogLevel) {
		return fmt.Errorf("invalid log level: %s", f.LogLevel)
	}
	if !contains([]string{"json", "text"}, f.LogFormat) {
		return fmt.Errorf("invalid log format: %s", f.LogFormat)
	}
	if f.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", f.ShutdownTimeout)
	}
	return nil
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads and validates the configuration. An empty path yields the
// defaults with environment overrides applied.
func LoadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// SetupLogger builds the process logger, tagged with the service name
func SetupLogger(w io.Writer, level, format, service string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		"service", service,
		"version", Version,
		"pid", os.Getpid(),
	)
}

// PrintHelp writes usage for the binary named app
func PrintHelp(w io.Writer, fs *flag.FlagSet, app, summary string) {
	_, _ = fmt.Fprintf(w, "%s - %s\n\nUsage: %s [options]\n\nOptions:\n", app, summary, app)
	fs.SetOutput(w)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, "\nVersion: %s\nBuild: %s\n", Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
