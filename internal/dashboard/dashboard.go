// Package dashboard runs the sheet-to-chart pipeline: fetch a sheet, type its
// rows, draft candidate charts and either let the reasoning service choose
// among them (Analyze) or refresh an existing dashboard in place (Resync).
package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/logging"
	"github.com/KaramelBytes/sheetcharts/internal/sheets"
)

// Fetcher reads the raw cell grid of a spreadsheet.
type Fetcher interface {
	FetchSheet(ctx context.Context, sheetID, sheetRange string) (chart.Grid, error)
}

// Reasoner picks charts from the candidate drafts and returns its raw reply.
type Reasoner interface {
	Ask(ctx context.Context, records []chart.Record, candidates chart.Set, intent string) (string, error)
}

type Options struct {
	SheetRange string
	// Zero disables the per-call deadline; the caller's context still applies.
	FetchTimeout     time.Duration
	ReasoningTimeout time.Duration
	Logger           *slog.Logger
}

type Service struct {
	fetcher  Fetcher
	reasoner Reasoner
	opts     Options
	log      *slog.Logger
}

func New(f Fetcher, r Reasoner, opts Options) *Service {
	if opts.SheetRange == "" {
		opts.SheetRange = sheets.DefaultRange
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Service{fetcher: f, reasoner: r, opts: opts, log: log}
}

type AnalyzeRequest struct {
	SheetURL string `json:"sheet_url"`
	Prompt   string `json:"prompt,omitempty"`
}

// ResyncRequest carries the dashboard to refresh. Previous is the preferred
// field; a bare top-level charts list (a stored Analyze response posted back
// as-is) is accepted too.
type ResyncRequest struct {
	SheetURL string        `json:"sheet_url"`
	Previous *chart.Set    `json:"previous,omitempty"`
	Charts   []chart.Chart `json:"charts,omitempty"`
}

// PreviousSet returns the chart set to reconcile, or nil for a cold start.
func (r ResyncRequest) PreviousSet() *chart.Set {
	if r.Previous != nil {
		return r.Previous
	}
	if r.Charts != nil {
		return &chart.Set{Charts: r.Charts}
	}
	return nil
}

// Analyze fetches the sheet and returns the charts the reasoning service
// selected alongside the raw grid.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (chart.FinalSet, error) {
	id, err := sheetID(req.SheetURL)
	if err != nil {
		return chart.FinalSet{}, err
	}
	grid, err := s.fetch(ctx, id)
	if err != nil {
		return chart.FinalSet{}, err
	}
	return s.AnalyzeGrid(ctx, grid, req.Prompt)
}

// AnalyzeGrid runs Analyze on an already loaded grid.
func (s *Service) AnalyzeGrid(ctx context.Context, grid chart.Grid, prompt string) (chart.FinalSet, error) {
	start := time.Now()
	records, err := chart.Normalize(grid)
	if err != nil {
		return chart.FinalSet{}, err
	}
	candidates := chart.BuildCandidates(grid.Header(), records)

	rctx, cancel := withTimeout(ctx, s.opts.ReasoningTimeout)
	defer cancel()
	reply, err := s.reasoner.Ask(rctx, records, candidates, prompt)
	if err != nil {
		return chart.FinalSet{}, err
	}
	set, err := chart.ParseResponse(reply)
	if err != nil {
		s.log.Warn("dashboard.malformed_reply", "error", err.Error())
		return chart.FinalSet{}, err
	}
	s.log.Info("dashboard.analyzed",
		"rows", len(records),
		"candidates", len(candidates.Charts),
		"charts", len(set.Charts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return chart.FinalSet{Charts: set.Charts, RawData: grid}, nil
}

// Resync fetches the sheet again and refreshes the previous charts against
// it without calling the reasoning service.
func (s *Service) Resync(ctx context.Context, req ResyncRequest) (chart.FinalSet, error) {
	id, err := sheetID(req.SheetURL)
	if err != nil {
		return chart.FinalSet{}, err
	}
	grid, err := s.fetch(ctx, id)
	if err != nil {
		return chart.FinalSet{}, err
	}
	return s.ResyncGrid(grid, req.PreviousSet(), req.SheetURL)
}

// ResyncGrid runs Resync on an already loaded grid. sheetURL is echoed back.
func (s *Service) ResyncGrid(grid chart.Grid, previous *chart.Set, sheetURL string) (chart.FinalSet, error) {
	records, err := chart.Normalize(grid)
	if err != nil {
		return chart.FinalSet{}, err
	}
	header := grid.Header()
	if previous != nil {
		if stale := chart.StaleSeries(previous.Charts, header); len(stale) > 0 {
			s.log.Warn("dashboard.stale_series", "keys", stale, "header", header)
		}
	}
	set := chart.Reconcile(previous, header, records)
	s.log.Info("dashboard.resynced",
		"rows", len(records),
		"charts", len(set.Charts),
		"cold_start", previous == nil,
	)
	return chart.FinalSet{Charts: set.Charts, RawData: grid, SheetURL: sheetURL}, nil
}

func (s *Service) fetch(ctx context.Context, id string) (chart.Grid, error) {
	fctx, cancel := withTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	grid, err := s.fetcher.FetchSheet(fctx, id, s.opts.SheetRange)
	if err != nil {
		s.log.Warn("dashboard.fetch_failed", "sheet_id", id, "error", err.Error())
		return nil, err
	}
	s.log.Debug("dashboard.fetched", "sheet_id", id, "rows", len(grid))
	return grid, nil
}

func sheetID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", &ValidationError{Msg: "no sheet_url provided"}
	}
	id, ok := sheets.ExtractSheetID(url)
	if !ok {
		return "", &ValidationError{Msg: "invalid Google Sheets URL"}
	}
	return id, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
