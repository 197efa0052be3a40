package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user config directory under $HOME.
const DirName = ".sheetcharts"

// Global configuration structure.
type Global struct {
	OpenAIAPIKey string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	GoogleAPIKey string `mapstructure:"google_api_key" yaml:"google_api_key"`

	// Reasoning service
	Provider         string  `mapstructure:"provider" yaml:"provider"`
	Model            string  `mapstructure:"model" yaml:"model"`
	BaseURL          string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	OllamaHost       string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	MaxTokens        int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`
	StructuredOutput bool    `mapstructure:"structured_output" yaml:"structured_output"`

	// Sheets
	SheetsBaseURL string `mapstructure:"sheets_base_url" yaml:"sheets_base_url"`
	SheetRange    string `mapstructure:"sheet_range" yaml:"sheet_range"`

	// HTTP service
	ListenAddr  string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// HTTP/Retry configuration
	HTTPTimeoutSec      int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	FetchTimeoutSec     int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
	ReasoningTimeoutSec int `mapstructure:"reasoning_timeout_sec" yaml:"reasoning_timeout_sec"`
	RetryMaxAttempts    int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs    int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs     int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// ErrMissingCredential is wrapped by Validate and the Require helpers.
var ErrMissingCredential = errors.New("missing credential")

// Validate checks that both upstream credentials are present. The ollama
// provider runs locally and needs no reasoning key.
func (c *Global) Validate() error {
	var missing []string
	if err := c.RequireSheets(); err != nil {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if err := c.RequireReasoning(); err != nil {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set (env, .env or config file)", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// RequireReasoning fails when the selected provider needs a key that is unset.
func (c *Global) RequireReasoning() error {
	if strings.EqualFold(strings.TrimSpace(c.Provider), "ollama") {
		return nil
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingCredential)
	}
	return nil
}

// RequireSheets fails when the Google API key is unset.
func (c *Global) RequireSheets() error {
	if strings.TrimSpace(c.GoogleAPIKey) == "" {
		return fmt.Errorf("%w: GOOGLE_API_KEY", ErrMissingCredential)
	}
	return nil
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func (c *Global) HTTPTimeout() time.Duration      { return seconds(c.HTTPTimeoutSec, 60) }
func (c *Global) FetchTimeout() time.Duration     { return seconds(c.FetchTimeoutSec, 30) }
func (c *Global) ReasoningTimeout() time.Duration { return seconds(c.ReasoningTimeoutSec, 120) }
func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}
func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// DefaultPath returns ~/.sheetcharts/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sheetcharts/config.yaml, creating the directory if necessary.
// The file holds API keys, so it is written owner-only.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including .env) > config file > defaults. cfgFile
// overrides the default config location.
func Load(cfgFile string) (*Global, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("SHEETCHARTS")
	v.AutomaticEnv()
	// The bare names are what deployments of the service already export.
	_ = v.BindEnv("openai_api_key", "SHEETCHARTS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("google_api_key", "SHEETCHARTS_GOOGLE_API_KEY", "GOOGLE_API_KEY")

	// Defaults
	v.SetDefault("openai_api_key", "")
	v.SetDefault("google_api_key", "")
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4-turbo")
	v.SetDefault("base_url", "")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("structured_output", true)
	v.SetDefault("sheets_base_url", "https://sheets.googleapis.com")
	v.SetDefault("sheet_range", "A1:Z1000")
	v.SetDefault("listen_addr", ":5000")
	v.SetDefault("cors_origins", []string{"*"})
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("fetch_timeout_sec", 30)
	v.SetDefault("reasoning_timeout_sec", 120)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, DirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
