package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/sheetcharts/internal/ai"
	"github.com/KaramelBytes/sheetcharts/internal/logging"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sheetcharts/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set sheetcharts configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		secrets := logging.RedactAny(map[string]string{
			"openai_api_key": cfg.OpenAIAPIKey,
			"google_api_key": cfg.GoogleAPIKey,
		}).(map[string]string)
		fmt.Fprintf(w, "openai_api_key: %s\n", secrets["openai_api_key"])
		fmt.Fprintf(w, "google_api_key: %s\n", secrets["google_api_key"])
		fmt.Fprintf(w, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(w, "model: %s\n", cfg.Model)
		if cfg.BaseURL != "" {
			fmt.Fprintf(w, "base_url: %s\n", cfg.BaseURL)
		}
		if strings.EqualFold(cfg.Provider, ai.ProviderOllama) {
			fmt.Fprintf(w, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(w, "structured_output: %t\n", cfg.StructuredOutput)
		fmt.Fprintf(w, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(w, "sheets_base_url: %s\n", cfg.SheetsBaseURL)
		fmt.Fprintf(w, "sheet_range: %s\n", cfg.SheetRange)
		fmt.Fprintf(w, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(w, "cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ","))
		fmt.Fprintf(w, "fetch_timeout_sec: %d\n", cfg.FetchTimeoutSec)
		fmt.Fprintf(w, "reasoning_timeout_sec: %d\n", cfg.ReasoningTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(w, "log_format: %s\n", cfg.LogFormat)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(w, "⚠ %v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := applySetting(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "openai_api_key":
		c.OpenAIAPIKey = val
	case "google_api_key":
		c.GoogleAPIKey = val
	case "provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if p == "local" {
			p = ai.ProviderOllama
		}
		if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "structured_output":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for structured_output: %v", val)
		}
		c.StructuredOutput = b
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "sheets_base_url":
		c.SheetsBaseURL = val
	case "sheet_range":
		c.SheetRange = val
	case "listen_addr":
		c.ListenAddr = val
	case "cors_origins":
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "fetch_timeout_sec":
		c.FetchTimeoutSec, err = atoi()
	case "reasoning_timeout_sec":
		c.ReasoningTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "log_level":
		if _, perr := logging.ParseLevel(val); perr != nil {
			return perr
		}
		c.LogLevel = val
	case "log_format":
		if _, perr := logging.New(val, "info", io.Discard); perr != nil {
			return perr
		}
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
