package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appconfig "github.com/ctcl-atlas/atlas/internal/config"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Dataset configuration
	DatasetPath string
	Strict      bool
	LoadTimeout time.Duration
	Target      expression.Group
	Policy      compare.Policy

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.ctclatlas.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := os.Getenv("CTCLATLAS_CONFIG")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(constants.DefaultConfigName)
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	return configFromViper()
}

// ReadConfigFile loads an explicit config file given with --config.
func (c *Config) ReadConfigFile(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	loaded, err := configFromViper()
	if err != nil {
		return err
	}

	// Flag-backed fields keep the values cobra already parsed.
	loaded.Verbose, loaded.Quiet, loaded.NoColor = c.Verbose, c.Quiet, c.NoColor
	if c.Format != "" {
		loaded.Format = c.Format
	}
	if c.LogLevel != "" {
		loaded.LogLevel = c.LogLevel
	}
	if c.DatasetPath != "" {
		loaded.DatasetPath = c.DatasetPath
	}
	*c = *loaded
	return nil
}

func configFromViper() (*Config, error) {
	policy, err := appconfig.Policy(compare.DefaultPolicy())
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	target, err := appconfig.Target()
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	return &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		DatasetPath: appconfig.DatasetPath(),
		Strict:      viper.GetBool(appconfig.KeyStrict),
		LoadTimeout: viper.GetDuration("load_timeout"),
		Target:      target,
		Policy:      policy,

		// An empty level lets the -v/-q shortcuts apply
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars. Boolean flags can
// only switch a setting on.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, dataset string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if dataset != "" {
		c.DatasetPath = dataset
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded first because godotenv never overrides a variable
// that is already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
