package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var (
	ErrNoConfig     = errors.New("config file not found")
	ErrNoAPIKey     = errors.New("api_key not set in config")
	ErrInvalidJSON  = errors.New("invalid config JSON")
	ErrInvalidRetry = errors.New("max_retries and retry_delay_ms must not be negative")
	ErrNoPath       = errors.New("config has no file path")
)

// Environment overrides, applied on top of the file.
const (
	EnvAPIKey = "FRIENDEV_API_KEY"
	EnvAPIURL = "FRIENDEV_API_URL"
	EnvModel  = "FRIENDEV_MODEL"
)

const (
	DefaultAPIURL         = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultMaxRetries     = 3
	DefaultRetryDelayMs   = 300
	DefaultRequestTimeout = 300
	DefaultConnectTimeout = 60
)

// DefaultAlwaysApproveCommands are commands that always need confirmation.
var DefaultAlwaysApproveCommands = []string{"rm", "del", "rmdir", "format", "fdisk"}

// Config holds the global friendev configuration.
type Config struct {
	APIKey                string   `json:"api_key"`
	APIURL                string   `json:"api_url"`
	Model                 string   `json:"model"`
	MaxRetries            *int     `json:"max_retries"`
	RetryDelayMs          *int     `json:"retry_delay_ms"`
	RequestTimeoutSeconds *int     `json:"request_timeout_seconds"`
	ConnectTimeoutSeconds *int     `json:"connect_timeout_seconds"`
	RequireApproval       *bool    `json:"require_approval"`        // gate every run_command (default: false)
	AlwaysApproveCommands []string `json:"always_approve_commands"` // first words that always need approval
	SystemPrompt          string   `json:"system_prompt,omitempty"`

	path string
}

// DefaultPath returns ~/.config/friendev/config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "friendev", "config.json"), nil
}

// Load reads the config from ~/.config/friendev/config.json.
func Load() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config from a specific path. A missing file is accepted
// when the API key comes from the environment.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	case os.IsNotExist(err):
		if os.Getenv(EnvAPIKey) == "" {
			return nil, ErrNoConfig
		}
	default:
		return nil, err
	}
	cfg.path = path

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if *cfg.MaxRetries < 0 || *cfg.RetryDelayMs < 0 {
		return nil, ErrInvalidRetry
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries == nil {
		n := DefaultMaxRetries
		cfg.MaxRetries = &n
	}
	if cfg.RetryDelayMs == nil {
		n := DefaultRetryDelayMs
		cfg.RetryDelayMs = &n
	}
	if cfg.RequestTimeoutSeconds == nil || *cfg.RequestTimeoutSeconds <= 0 {
		n := DefaultRequestTimeout
		cfg.RequestTimeoutSeconds = &n
	}
	if cfg.ConnectTimeoutSeconds == nil || *cfg.ConnectTimeoutSeconds <= 0 {
		n := DefaultConnectTimeout
		cfg.ConnectTimeoutSeconds = &n
	}
	if cfg.RequireApproval == nil {
		f := false
		cfg.RequireApproval = &f
	}
	if cfg.AlwaysApproveCommands == nil {
		cfg.AlwaysApproveCommands = slices.Clone(DefaultAlwaysApproveCommands)
	}
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// RetryDelay is the base delay of the retry backoff.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(*c.RetryDelayMs) * time.Millisecond
}

// RequestTimeout bounds one whole streaming request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(*c.RequestTimeoutSeconds) * time.Second
}

// ConnectTimeout bounds connection setup.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(*c.ConnectTimeoutSeconds) * time.Second
}

// CommandNeedsApproval reports whether run_command must ask before running
// command: always when require_approval is set, otherwise when its first
// word is listed in always_approve_commands.
func (c *Config) CommandNeedsApproval(command string) bool {
	if c.RequireApproval != nil && *c.RequireApproval {
		return true
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	return slices.Contains(c.AlwaysApproveCommands, fields[0])
}

// AddAlwaysApproveCommand adds a command word. It reports false if it was
// already listed.
func (c *Config) AddAlwaysApproveCommand(cmd string) bool {
	if cmd == "" || slices.Contains(c.AlwaysApproveCommands, cmd) {
		return false
	}
	c.AlwaysApproveCommands = append(c.AlwaysApproveCommands, cmd)
	return true
}

// RemoveAlwaysApproveCommand removes a command word. It reports false if it
// was not listed.
func (c *Config) RemoveAlwaysApproveCommand(cmd string) bool {
	i := slices.Index(c.AlwaysApproveCommands, cmd)
	if i < 0 {
		return false
	}
	c.AlwaysApproveCommands = slices.Delete(c.AlwaysApproveCommands, i, i+1)
	return true
}

// Save writes the config back to the file it was loaded from. The API key is
// written only if it was present in the file, not taken from the environment.
func (c *Config) Save() error {
	if c.path == "" {
		return ErrNoPath
	}

	out := *c
	if os.Getenv(EnvAPIKey) != "" {
		out.APIKey = fileAPIKey(c.path)
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.path, append(data, '\n'), 0600)
}

func fileAPIKey(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var onDisk struct {
		APIKey string `json:"api_key"`
	}
	if json.Unmarshal(data, &onDisk) != nil {
		return ""
	}
	return onDisk.APIKey
}
