package cmd

import (
	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/dashboard"
	"github.com/KaramelBytes/sheetcharts/internal/sheets"
	"github.com/spf13/cobra"
)

var (
	anaPrompt     string
	anaOutputPath string
	anaFormat     string
	anaRange      string
	anaSheetName  string
	anaDelimiter  string
	anaProvider   string
	anaModel      string
	anaOllamaHost string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <sheet-url|file>",
	Short: "Suggest dashboard charts for a Google Sheet or a local CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := args[0]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if anaRange != "" {
			c.SheetRange = anaRange
		}
		local := sheets.IsLocalFile(ref)
		if err := c.RequireReasoning(); err != nil {
			return err
		}
		if !local {
			if err := c.RequireSheets(); err != nil {
				return err
			}
		}
		svc, err := newService(c, runtimeOptions{ProviderFlag: anaProvider, ModelFlag: anaModel, OllamaHost: anaOllamaHost})
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		var out chart.FinalSet
		if local {
			grid, err := loadLocalGrid(ref, anaSheetName, anaDelimiter)
			if err != nil {
				return err
			}
			out, err = svc.AnalyzeGrid(ctx, grid, anaPrompt)
			if err != nil {
				return describeError(err)
			}
		} else {
			out, err = svc.Analyze(ctx, dashboard.AnalyzeRequest{SheetURL: ref, Prompt: anaPrompt})
			if err != nil {
				return describeError(err)
			}
			// kept so the saved result can be passed to resync --previous alone
			out.SheetURL = ref
		}
		return writeResult(cmd.OutOrStdout(), out, anaFormat, anaOutputPath)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaPrompt, "prompt", "p", "", "what the dashboard should focus on")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the result to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "json", "output format: json|yaml")
	analyzeCmd.Flags().StringVar(&anaRange, "range", "", "A1 range to read from the sheet (overrides config)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet to read (default first sheet)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "reasoning provider: openai|openrouter|ollama (overrides config)")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model name (overrides config)")
	analyzeCmd.Flags().StringVar(&anaOllamaHost, "ollama-host", "", "Ollama host when --provider ollama")
}
