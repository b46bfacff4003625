package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/tidyloom-cli/internal/config"
	"github.com/KaramelBytes/tidyloom-cli/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tidyloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration (API key masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		masked := cfg.Masked()
		b, err := yaml.Marshal(&masked)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Example: `  tidyloom config set provider openai
  tidyloom config set models gemini-2.5-flash,gemini-2.0-flash
  tidyloom config set intents.customer_id "Primary key: customer identifier."`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	if col, ok := strings.CutPrefix(key, "intents."); ok {
		if col == "" {
			return fmt.Errorf("missing column name in %s", key)
		}
		if c.Intents == nil {
			c.Intents = map[string]string{}
		}
		c.Intents[strings.ToLower(col)] = val
		return nil
	}
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if _, err := ai.NewRuntime(p, ai.RuntimeConfig{}); err != nil {
			return fmt.Errorf("invalid provider: %w", err)
		}
		c.Provider = p
	case "base_url":
		c.BaseURL = val
	case "models":
		var models []string
		for _, m := range strings.Split(val, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		c.Models = models
	case "retries":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for retries: %v", val)
		}
		c.Retries = i
	case "backoff_unit_ms":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for backoff_unit_ms: %v", val)
		}
		c.BackoffUnitMs = i
	case "http_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
		}
		c.HTTPTimeoutSec = i
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for max_tokens: %w", err)
		}
		c.MaxTokens = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for temperature: %w", err)
		}
		c.Temperature = f
	case "project":
		c.Project = val
	case "output_dir":
		c.OutputDir = val
	case "ollama_host":
		c.OllamaHost = val
	case "log_level":
		if _, err := logging.New(val, true); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
