package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/KaramelBytes/sheetcharts/internal/advisor"
	"github.com/KaramelBytes/sheetcharts/internal/ai"
	"github.com/KaramelBytes/sheetcharts/internal/chart"
	cfgpkg "github.com/KaramelBytes/sheetcharts/internal/config"
	"github.com/KaramelBytes/sheetcharts/internal/dashboard"
	"github.com/KaramelBytes/sheetcharts/internal/sheets"
	"github.com/KaramelBytes/sheetcharts/internal/utils"
	"gopkg.in/yaml.v3"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := cfg.HTTPTimeout()
	retryMax := 1
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg.RetryMaxAttempts > 0 {
		retryMax = cfg.RetryMaxAttempts
	}
	if cfg.RetryBaseDelayMs > 0 {
		baseDelay = cfg.RetryBaseDelay()
	}
	if cfg.RetryMaxDelayMs > 0 {
		maxDelay = cfg.RetryMaxDelay()
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" {
		providerName = strings.ToLower(strings.TrimSpace(cfg.Provider))
	}
	switch providerName {
	case "":
		providerName = ai.ProviderOpenAI
	case "local":
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.BaseURL,
	}
	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = cfg.OllamaHost
		}
		rc.Host = host
	}

	rt, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return rt, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	return "gpt-4-turbo"
}

// newService wires the fetcher, the reasoning runtime and the pipeline from config.
func newService(cfg *cfgpkg.Global, opts runtimeOptions) (*dashboard.Service, error) {
	rt, provider, err := buildRuntime(cfg, opts)
	if err != nil {
		return nil, err
	}
	model := selectModel(cfg, opts.ModelFlag)
	adv := advisor.New(rt, advisor.Options{
		Model:       model,
		Structured:  cfg.StructuredOutput,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Logger:      logger,
	})
	logger.Debug("pipeline.init", "provider", provider, "model", model, "sheet_range", cfg.SheetRange)
	return dashboard.New(newFetcher(cfg), adv, pipelineOptions(cfg)), nil
}

// newResyncService builds a pipeline without a reasoning runtime; Resync
// never consults it.
func newResyncService(cfg *cfgpkg.Global) *dashboard.Service {
	return dashboard.New(newFetcher(cfg), nil, pipelineOptions(cfg))
}

func newFetcher(cfg *cfgpkg.Global) *sheets.Fetcher {
	return sheets.NewFetcherWithBaseURL(cfg.GoogleAPIKey, cfg.HTTPTimeout(), cfg.SheetsBaseURL)
}

func pipelineOptions(cfg *cfgpkg.Global) dashboard.Options {
	return dashboard.Options{
		SheetRange:       cfg.SheetRange,
		FetchTimeout:     cfg.FetchTimeout(),
		ReasoningTimeout: cfg.ReasoningTimeout(),
		Logger:           logger,
	}
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

// encodeResult renders v as json or yaml.
func encodeResult(v any, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return utils.PrettyJSON(v)
	case "yaml", "yml":
		return utils.PrettyYAML(v)
	}
	return nil, fmt.Errorf("unsupported --format: %s (use json or yaml)", format)
}

// writeResult prints v to w or, with outPath, writes it to disk.
func writeResult(w io.Writer, v any, format, outPath string) error {
	b, err := encodeResult(v, format)
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err := w.Write(b)
		return err
	}
	if err := utils.SafeWriteFile(outPath, b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outPath)
	return nil
}

// readDashboardFile loads a stored dashboard: an analyze/resync result, a
// bare {"charts": [...]} set or a {"previous": {...}} request body, as JSON
// or YAML (by extension).
func readDashboardFile(path string) (dashboard.ResyncRequest, error) {
	var req dashboard.ResyncRequest
	b, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return req, fmt.Errorf("parse %s: %w", path, err)
		}
		if b, err = json.Marshal(doc); err != nil {
			return req, fmt.Errorf("convert %s: %w", path, err)
		}
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("parse %s: %w", path, err)
	}
	return req, nil
}

// loadLocalGrid reads a CSV/TSV/XLSX file as a raw grid.
func loadLocalGrid(path, sheetName, delimiter string) (chart.Grid, error) {
	d, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	return sheets.LoadFile(path, sheets.FileOptions{SheetName: sheetName, Delimiter: d})
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// describeError adds the classification to a pipeline error for CLI output.
func describeError(err error) error {
	kind, _ := dashboard.Classify(err)
	return fmt.Errorf("%s: %w", kind, err)
}
