package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/dashboard"
	"github.com/KaramelBytes/sheetcharts/internal/diff"
	"github.com/KaramelBytes/sheetcharts/internal/sheets"
	"github.com/spf13/cobra"
)

var (
	resPrevious   string
	resOutputPath string
	resFormat     string
	resRange      string
	resSheetName  string
	resDelimiter  string
	resDiff       bool
	resContext    int
)

var resyncCmd = &cobra.Command{
	Use:   "resync [sheet-url|file]",
	Short: "Refresh a stored dashboard against the current sheet data (no model call)",
	Long: `Resync re-reads the sheet and updates a previously returned dashboard in place:
line and bar charts get the new rows, pie charts are recut from the last row.
Titles, series and custom fields are kept. Without --previous the candidate
drafts are returned. When the argument is omitted the sheet_url stored in the
--previous file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if resRange != "" {
			c.SheetRange = resRange
		}
		var req dashboard.ResyncRequest
		if resPrevious != "" {
			if req, err = readDashboardFile(resPrevious); err != nil {
				return err
			}
		}
		ref := req.SheetURL
		if len(args) == 1 {
			ref = args[0]
		}
		if ref == "" {
			return errors.New("sheet URL or file required (or a --previous file carrying sheet_url)")
		}

		svc := newResyncService(c)
		var out chart.FinalSet
		if sheets.IsLocalFile(ref) {
			grid, err := loadLocalGrid(ref, resSheetName, resDelimiter)
			if err != nil {
				return err
			}
			out, err = svc.ResyncGrid(grid, req.PreviousSet(), req.SheetURL)
			if err != nil {
				return describeError(err)
			}
		} else {
			if err := c.RequireSheets(); err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			req.SheetURL = ref
			out, err = svc.Resync(ctx, req)
			if err != nil {
				return describeError(err)
			}
		}

		if !resDiff {
			return writeResult(cmd.OutOrStdout(), out, resFormat, resOutputPath)
		}
		if resOutputPath != "" {
			if err := writeResult(cmd.OutOrStdout(), out, resFormat, resOutputPath); err != nil {
				return err
			}
		}
		return printDiff(cmd, req.PreviousSet(), out.Charts)
	},
}

// printDiff shows how the charts changed relative to the previous dashboard.
func printDiff(cmd *cobra.Command, previous *chart.Set, charts []chart.Chart) error {
	before := chart.Set{}
	if previous == nil {
		fmt.Fprintln(os.Stderr, "⚠ No previous dashboard given; diffing against an empty set")
	} else {
		before = *previous
	}
	a, err := encodeResult(before, resFormat)
	if err != nil {
		return err
	}
	b, err := encodeResult(chart.Set{Charts: charts}, resFormat)
	if err != nil {
		return err
	}
	lines := diff.Lines(string(a), string(b))
	if !diff.Changed(lines) {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ No changes")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), diff.Render(lines, resContext))
	return nil
}

func init() {
	rootCmd.AddCommand(resyncCmd)
	resyncCmd.Flags().StringVar(&resPrevious, "previous", "", "stored dashboard (analyze/resync output, JSON or YAML)")
	resyncCmd.Flags().StringVarP(&resOutputPath, "output", "o", "", "write the result to a file instead of stdout")
	resyncCmd.Flags().StringVar(&resFormat, "format", "json", "output format: json|yaml")
	resyncCmd.Flags().StringVar(&resRange, "range", "", "A1 range to read from the sheet (overrides config)")
	resyncCmd.Flags().StringVar(&resSheetName, "sheet-name", "", "XLSX: sheet to read (default first sheet)")
	resyncCmd.Flags().StringVar(&resDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (auto-detect if omitted)")
	resyncCmd.Flags().BoolVar(&resDiff, "diff", false, "print a line diff of the charts against --previous")
	resyncCmd.Flags().IntVar(&resContext, "diff-context", 3, "unchanged lines kept around each change (-1 = all)")
}
