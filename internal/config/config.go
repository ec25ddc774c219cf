// Package config loads transplant settings from the environment, a local
// dotenv file and an optional YAML or TOML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/lherron/transplant/internal/domain"
)

// Config represents the application configuration
type Config struct {
	DBPath         string                       `yaml:"db_path" toml:"db_path"`
	LogLevel       string                       `yaml:"log_level" toml:"log_level"`
	LogFormat      string                       `yaml:"log_format" toml:"log_format"`
	Debug          bool                         `yaml:"debug" toml:"debug"`
	SuccessURL     string                       `yaml:"success_url" toml:"success_url"`
	FailureURL     string                       `yaml:"failure_url" toml:"failure_url"`
	DefaultAccount string                       `yaml:"default_account" toml:"default_account"`
	WebhookURLs    []string                     `yaml:"webhook_urls" toml:"webhook_urls"`
	Operations     []domain.OperationDescriptor `yaml:"operations" toml:"operations"`

	// Source is the config file that was read, if any.
	Source string `yaml:"-" toml:"-"`
}

// DefaultOperations reassigns every owner field of the tracker record types
// with the Default strategy.
func DefaultOperations() []domain.OperationDescriptor {
	return []domain.OperationDescriptor{
		{Model: "tracker.Container", Strategy: "merge.Default"},
		{Model: "tracker.Task", Strategy: "merge.Default"},
		{Model: "tracker.Task", Strategy: "merge.Default", Field: "assignee"},
		{Model: "tracker.Comment", Strategy: "merge.Default", Field: "author"},
		{Model: "tracker.Attachment", Strategy: "merge.Default"},
	}
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. $TRANSPLANT_CONFIG, or ~/.config/transplant/config.yaml (or .toml)
func Load() (*Config, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit config file, as given by --config. An
// empty path falls back to TRANSPLANT_CONFIG and then the default location.
func LoadPath(path string) (*Config, error) {
	// .env.local never overrides variables that are already set
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if path == "" {
		path = os.Getenv("TRANSPLANT_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file. A missing file is not an
// error; a file that fails to parse is.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{
		LogLevel:  "info",
		LogFormat: "text",
	}

	if path != "" {
		if err := readConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(homeDir, ".local", "share", "transplant", "transplant.db")
	}
	if cfg.Operations == nil {
		cfg.Operations = DefaultOperations()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Source = path
	return nil
}

// defaultConfigPath prefers config.yaml and falls back to config.toml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(homeDir, ".config", "transplant")
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "config.yaml")
}

func applyEnv(cfg *Config) error {
	if dbPath := getEnvOrFile("TRANSPLANT_DB_PATH", "TRANSPLANT_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel := os.Getenv("TRANSPLANT_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("TRANSPLANT_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if debug := os.Getenv("TRANSPLANT_DEBUG"); debug != "" {
		v, err := strconv.ParseBool(debug)
		if err != nil {
			return fmt.Errorf("invalid TRANSPLANT_DEBUG %q: %w", debug, err)
		}
		cfg.Debug = v
	}
	if successURL := os.Getenv("TRANSPLANT_SUCCESS_URL"); successURL != "" {
		cfg.SuccessURL = successURL
	}
	if failureURL := os.Getenv("TRANSPLANT_FAILURE_URL"); failureURL != "" {
		cfg.FailureURL = failureURL
	}
	if account := os.Getenv("TRANSPLANT_ACCOUNT"); account != "" {
		cfg.DefaultAccount = account
	}
	if hooks := os.Getenv("TRANSPLANT_WEBHOOK_URLS"); hooks != "" {
		cfg.WebhookURLs = strings.Split(hooks, ",")
	}
	return nil
}

// Validate checks the logging settings and every configured operation.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}
	for i, op := range c.Operations {
		if err := domain.ValidateDescriptor(op); err != nil {
			return fmt.Errorf("operations[%d]: %w", i, err)
		}
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories, stopping at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	for dir := filepath.Clean(cwd); ; {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		parent := filepath.Dir(dir)
		if dir == homeDir || parent == dir {
			return ""
		}
		dir = parent
	}
}

// GetAccountID returns the identifier of the receiving account.
// Priority: TRANSPLANT_ACCOUNT > config.default_account
func (c *Config) GetAccountID() string {
	if account := os.Getenv("TRANSPLANT_ACCOUNT"); account != "" {
		return account
	}
	return c.DefaultAccount
}
