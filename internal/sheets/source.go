package sheets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/xuri/excelize/v2"
)

// Source reads a grid from a local spreadsheet file.
type Source interface {
	CanOpen(filename string) bool
	Open(path string, opt FileOptions) (chart.Grid, error)
}

// FileOptions selects what part of a file is read.
type FileOptions struct {
	// SheetName picks a workbook sheet; empty means the first sheet.
	SheetName string
	// Delimiter overrides delimiter detection for delimited text files.
	Delimiter rune
}

var registry []Source

// Register adds a source implementation to the registry.
func Register(s Source) {
	registry = append(registry, s)
}

// ErrUnsupported indicates no registered source handles the file.
var ErrUnsupported = errors.New("unsupported spreadsheet format")

// LoadFile reads path with the first source that accepts its name.
func LoadFile(path string, opt FileOptions) (chart.Grid, error) {
	for _, s := range registry {
		if s.CanOpen(path) {
			return s.Open(path, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

// IsLocalFile reports whether ref names an existing regular file.
func IsLocalFile(ref string) bool {
	info, err := os.Stat(ref)
	return err == nil && info.Mode().IsRegular()
}

func init() {
	Register(delimitedSource{})
	Register(xlsxSource{})
}

type delimitedSource struct{}

func (delimitedSource) CanOpen(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (delimitedSource) Open(path string, opt FileOptions) (chart.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comma = delim
	var grid chart.Grid
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		grid = append(grid, rec)
	}
	if grid == nil {
		grid = chart.Grid{}
	}
	return trimTrailingEmpty(grid), nil
}

// sniffDelimiter picks tab for .tsv files and comma otherwise.
func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

type xlsxSource struct{}

func (xlsxSource) CanOpen(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

func (xlsxSource) Open(path string, opt FileOptions) (chart.Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheet := opt.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			sheet, filepath.Base(path), strings.Join(f.GetSheetList(), ", "))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	grid := make(chart.Grid, len(rows))
	for i, row := range rows {
		grid[i] = row
	}
	return trimTrailingEmpty(grid), nil
}

// trimTrailingEmpty drops blank rows at the end of the grid, which the
// Sheets API never returns either.
func trimTrailingEmpty(g chart.Grid) chart.Grid {
	n := len(g)
	for n > 0 && blankRow(g[n-1]) {
		n--
	}
	return g[:n]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
