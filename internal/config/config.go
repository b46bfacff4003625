package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
)

// EnvPrefix is prepended to every environment override (TIDYLOOM_API_KEY, ...).
const EnvPrefix = "TIDYLOOM"

// Global configuration structure.
type Global struct {
	APIKey   string   `mapstructure:"api_key" yaml:"api_key"`
	Provider string   `mapstructure:"provider" yaml:"provider"`
	BaseURL  string   `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Models   []string `mapstructure:"models" yaml:"models,omitempty"`

	// Recommendation service retry behaviour
	Retries        int `mapstructure:"retries" yaml:"retries"`
	BackoffUnitMs  int `mapstructure:"backoff_unit_ms" yaml:"backoff_unit_ms"`
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	Project   string            `mapstructure:"project" yaml:"project"`
	OutputDir string            `mapstructure:"output_dir" yaml:"output_dir"`
	Intents   map[string]string `mapstructure:"intents" yaml:"intents,omitempty"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// BackoffUnit returns BackoffUnitMs as a duration.
func (c *Global) BackoffUnit() time.Duration {
	return time.Duration(c.BackoffUnitMs) * time.Millisecond
}

// HTTPTimeout returns HTTPTimeoutSec as a duration.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// DefaultPath returns ~/.tidyloom/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tidyloom", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tidyloom/config.yaml, creating the directory if necessary.
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

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; command flags are applied by the caller.
// A missing config file is not an error; a malformed one is.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("provider", ai.ProviderGemini)
	v.SetDefault("base_url", "")
	v.SetDefault("models", []string{})
	v.SetDefault("retries", 2)
	v.SetDefault("backoff_unit_ms", 2000)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("project", "ProjectX")
	v.SetDefault("output_dir", "./cleaned_data")
	v.SetDefault("ollama_host", ai.DefaultOllamaHost)
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// TIDYLOOM_API_KEY wins over the provider's own variable, which wins over the file.
	if os.Getenv(EnvPrefix+"_API_KEY") == "" {
		if env := ai.APIKeyEnv(c.Provider); env != "" {
			if key := os.Getenv(env); key != "" {
				c.APIKey = key
			}
		}
	}
	return &c, nil
}

// LoadDotEnv copies KEY=VALUE pairs from path (".env" when empty) into the
// process environment. Variables that are already set win; a missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Masked returns a copy safe for display, with the API key obscured.
func (c *Global) Masked() Global {
	out := *c
	out.APIKey = Mask(c.APIKey)
	return out
}

// Mask hides all but the first and last three characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
