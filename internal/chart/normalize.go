package chart

import (
	"errors"
	"fmt"
)

// ErrMissingInput is matched by MissingInputError via errors.Is.
var ErrMissingInput = errors.New("missing input")

// MissingInputError is returned when no grid was supplied at all.
type MissingInputError struct {
	What string
}

func (e *MissingInputError) Error() string {
	if e.What == "" {
		return "no sheet data provided"
	}
	return fmt.Sprintf("no %s provided", e.What)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

// InsufficientDataError is returned when the grid lacks a header plus at
// least one data row.
type InsufficientDataError struct {
	Rows int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("sheet data is insufficient for analysis: got %d row(s), need a header and at least one data row", e.Rows)
}

// Header returns row 0 of the grid, or nil for an empty grid.
func (g Grid) Header() []string {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// Normalize converts a grid into typed records keyed by the header. The first
// column is always kept as text. Every other cell becomes a number when it
// parses as a plain decimal and keeps its original text otherwise. Cells
// missing from short rows become null.
func Normalize(g Grid) ([]Record, error) {
	if g == nil {
		return nil, &MissingInputError{What: "sheet values"}
	}
	if len(g) < 2 {
		return nil, &InsufficientDataError{Rows: len(g)}
	}
	header := g[0]
	out := make([]Record, 0, len(g)-1)
	for _, row := range g[1:] {
		rec := Record{vals: make(map[string]Value, len(header))}
		for i, col := range header {
			v := Null()
			if i < len(row) {
				if i == 0 {
					v = Text(row[i])
				} else {
					v = ParseCell(row[i])
				}
			}
			rec.set(col, v)
		}
		out = append(out, rec)
	}
	return out, nil
}
