package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the NEXRAD archive fetcher
type Config struct {
	// Archive endpoint settings
	Nexrad NexradConfig `yaml:"nexrad" json:"nexrad"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// NexradConfig holds settings for the NCDC bulk-download index endpoint
type NexradConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Product   string `yaml:"product" json:"product"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory  string `yaml:"base_directory" json:"base_directory"`
	DirNamePattern string `yaml:"dir_name_pattern" json:"dir_name_pattern"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Nexrad: NexradConfig{
			BaseURL:   "https://www.ncdc.noaa.gov/nexradinv/bdp-download.jsp",
			Product:   "AAL2",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 50,
			DownloadTimeout:     300 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory:  ".",
			DirNamePattern: "{site}_{year}_{month}_{day}",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("NEXGET_BASE_URL"); baseURL != "" {
		c.Nexrad.BaseURL = baseURL
	}
	if product := os.Getenv("NEXGET_PRODUCT"); product != "" {
		c.Nexrad.Product = product
	}
	if userAgent := os.Getenv("NEXGET_USER_AGENT"); userAgent != "" {
		c.Nexrad.UserAgent = userAgent
	}

	if concurrent := os.Getenv("NEXGET_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if timeout := os.Getenv("NEXGET_DOWNLOAD_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			c.Download.DownloadTimeout = d
		}
	}

	if outputDir := os.Getenv("NEXGET_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if logLevel := os.Getenv("NEXGET_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".nexget.yaml",
		".nexget.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "nexget", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "nexget", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".nexget.yaml"),
		filepath.Join(os.Getenv("HOME"), ".nexget.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Nexrad.BaseURL == "" {
		errs = append(errs, errors.New("archive base URL is required"))
	} else if !strings.HasPrefix(c.Nexrad.BaseURL, "http://") && !strings.HasPrefix(c.Nexrad.BaseURL, "https://") {
		errs = append(errs, errors.New("archive base URL must be an http or https URL"))
	}
	if c.Nexrad.Product == "" {
		errs = append(errs, errors.New("product code is required"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output base directory is required"))
	}
	if c.Output.DirNamePattern == "" {
		errs = append(errs, errors.New("output directory name pattern is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if product, ok := flags["product"].(string); ok && product != "" {
		c.Nexrad.Product = product
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.DownloadTimeout = timeout
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".nexget.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
