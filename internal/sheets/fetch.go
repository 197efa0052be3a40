// Package sheets retrieves raw tabular grids from Google Sheets or local
// spreadsheet files.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetcharts/internal/chart"
)

const (
	// DefaultBaseURL is the public Sheets API root.
	DefaultBaseURL = "https://sheets.googleapis.com"
	// DefaultRange covers the first 26 columns and 1000 rows.
	DefaultRange = "A1:Z1000"
)

var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// ExtractSheetID returns the spreadsheet ID from a Sheets URL such as
// https://docs.google.com/spreadsheets/d/<id>/edit.
func ExtractSheetID(sheetURL string) (string, bool) {
	m := sheetIDPattern.FindStringSubmatch(sheetURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FetchError reports a failed call to the Sheets API. Body holds the upstream
// response text when a response was received.
type FetchError struct {
	SheetID    string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("error fetching sheet data: status=%d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("error fetching sheet data: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher reads cell values through the Sheets v4 values endpoint using an
// API key.
type Fetcher struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewFetcher returns a Fetcher with the given HTTP timeout.
func NewFetcher(apiKey string, httpTimeout time.Duration) *Fetcher {
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
	}
}

// NewFetcherWithBaseURL allows pointing the fetcher at a different API root (used in tests).
func NewFetcherWithBaseURL(apiKey string, httpTimeout time.Duration, baseURL string) *Fetcher {
	f := NewFetcher(apiKey, httpTimeout)
	if baseURL != "" {
		f.baseURL = strings.TrimRight(baseURL, "/")
	}
	return f
}

type valuesResponse struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

// FetchSheet returns the grid for sheetRange. A response without a "values"
// field yields a nil grid.
func (f *Fetcher) FetchSheet(ctx context.Context, sheetID, sheetRange string) (chart.Grid, error) {
	if f.apiKey == "" {
		return nil, &FetchError{SheetID: sheetID, Err: errors.New("GOOGLE_API_KEY is missing")}
	}
	if sheetRange == "" {
		sheetRange = DefaultRange
	}
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		f.baseURL, url.PathEscape(sheetID), url.PathEscape(sheetRange), url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{SheetID: sheetID, Err: scrubKey(err, f.apiKey)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &FetchError{SheetID: sheetID, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var out valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &FetchError{SheetID: sheetID, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if out.Values == nil {
		return nil, nil
	}
	grid := make(chart.Grid, len(out.Values))
	for i, row := range out.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellText(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

// cellText renders unformatted values the way the formatted API would send them.
func cellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		if c {
			return "TRUE"
		}
		return "FALSE"
	default:
		b, _ := json.Marshal(c)
		return string(b)
	}
}

// scrubKey strips the API key from transport errors, which quote the URL.
func scrubKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := err.Error()
	for _, k := range []string{url.QueryEscape(key), key} {
		msg = strings.ReplaceAll(msg, k, "REDACTED")
	}
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
