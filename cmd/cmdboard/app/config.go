package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/cmdboard/pkg/constants"
	"github.com/agentstation/cmdboard/pkg/errors"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "CMDBOARD"

// Config holds the application configuration loaded from various sources
// including the settings file, environment variables, and .env files.
// The dashboard route table is not part of it; it comes from the YAML file
// given on the command line.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// SettingsFile is the settings file in use, if any
	SettingsFile string

	// Server settings
	ListenAddress     string
	RateLimit         int
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	TrustedProxies    []string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (CMDBOARD_*)
// 3. .env files
// 4. Settings file (~/.cmdboard.yaml or ./.cmdboard.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rate_limit", constants.DefaultRateLimit)
	v.SetDefault("read_header_timeout", constants.ReadHeaderTimeout)
	v.SetDefault("idle_timeout", constants.IdleTimeout)
	v.SetDefault("shutdown_timeout", constants.ShutdownTimeout)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if settingsFile := os.Getenv(EnvPrefix + "_SETTINGS"); settingsFile != "" {
		v.SetConfigFile(settingsFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultSettingsName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.WrapParse("yaml", v.ConfigFileUsed(), err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color") || os.Getenv("NO_COLOR") != "",
		Output:  v.GetString("output"),

		SettingsFile: v.ConfigFileUsed(),

		ListenAddress:     v.GetString("listen_address"),
		RateLimit:         v.GetInt("rate_limit"),
		ReadHeaderTimeout: v.GetDuration("read_header_timeout"),
		IdleTimeout:       v.GetDuration("idle_timeout"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		TrustedProxies:    splitList(v.GetStringSlice("trusted_proxies")),

		LogLevel:  firstNonEmpty(v.GetString("log_level"), os.Getenv("LOG_LEVEL")),
		LogFormat: firstNonEmpty(os.Getenv("LOG_FORMAT"), v.GetString("log_format")),
		LogOutput: firstNonEmpty(os.Getenv("LOG_OUTPUT"), v.GetString("log_output")),
	}

	return config, nil
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment are never overridden, so
// .env.local only fills what .env left unset.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// splitList flattens comma separated entries. Environment values arrive as a
// single string, settings files as a YAML list.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
