// Package chart turns tabular sheet data into dashboard chart configurations
// and keeps existing configurations in sync with refreshed data.
package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Type identifies how a chart is rendered.
type Type string

const (
	TypeLine Type = "line"
	TypeBar  Type = "bar"
	TypePie  Type = "pie"
)

// Known reports whether the reconciler knows how to refresh charts of type t.
func (t Type) Known() bool {
	switch t {
	case TypeLine, TypeBar, TypePie:
		return true
	}
	return false
}

// Grid is the untyped sheet content; row 0 is the header.
type Grid [][]string

// Series references a value column of the chart data.
type Series struct {
	Key string `json:"key"`
}

// UnmarshalJSON accepts both {"key": "col"} and a bare "col".
func (s *Series) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &s.Key)
	}
	var obj struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("series: %w", err)
	}
	s.Key = obj.Key
	return nil
}

// Chart is a single chart configuration. Fields the schema does not name are
// kept in Extra and written back unchanged, so client or model customisation
// survives a round trip.
type Chart struct {
	Title  string
	Type   Type
	XAxis  string
	Data   []Record
	Series []Series
	Extra  map[string]json.RawMessage
}

type chartWire struct {
	Title  string   `json:"title"`
	Type   Type     `json:"type"`
	XAxis  string   `json:"xAxis"`
	Data   []Record `json:"data"`
	Series []Series `json:"series"`
}

var chartFields = []string{"title", "type", "xAxis", "data", "series"}

// schemaField reports whether k names a schema field in any letter case.
func schemaField(k string) bool {
	for _, f := range chartFields {
		if strings.EqualFold(k, f) {
			return true
		}
	}
	return false
}

func (c Chart) MarshalJSON() ([]byte, error) {
	w := chartWire{Title: c.Title, Type: c.Type, XAxis: c.XAxis, Data: c.Data, Series: c.Series}
	if w.Data == nil {
		w.Data = []Record{}
	}
	if w.Series == nil {
		w.Series = []Series{}
	}
	b, err := json.Marshal(w)
	if err != nil || len(c.Extra) == 0 {
		return b, err
	}
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		if !schemaField(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	for _, k := range keys {
		kb, _ := json.Marshal(k)
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(c.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads schema fields by their exact names only. Keys that
// differ from a schema name just by letter case are dropped rather than kept
// in Extra, so a decoded chart never re-emits two spellings of one field.
func (c *Chart) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("chart: expected object, got null")
	}
	var out Chart
	for k, v := range fields {
		var err error
		switch k {
		case "title":
			err = json.Unmarshal(v, &out.Title)
		case "type":
			err = json.Unmarshal(v, &out.Type)
		case "xAxis":
			err = json.Unmarshal(v, &out.XAxis)
		case "data":
			err = json.Unmarshal(v, &out.Data)
		case "series":
			err = json.Unmarshal(v, &out.Series)
		default:
			if schemaField(k) {
				continue
			}
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[k] = v
		}
		if err != nil {
			return fmt.Errorf("chart field %q: %w", k, err)
		}
	}
	*c = out
	return nil
}

// Clone returns a copy whose slices and maps can be replaced without
// touching c. Records are immutable and shared.
func (c Chart) Clone() Chart {
	out := c
	if c.Data != nil {
		out.Data = append([]Record(nil), c.Data...)
	}
	if c.Series != nil {
		out.Series = append([]Series(nil), c.Series...)
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Set is an ordered collection of charts: the candidate drafts, the reasoning
// service reply, or a previously returned dashboard.
type Set struct {
	Charts []Chart `json:"charts"`
}

// MarshalJSON always emits a list, never null.
func (s Set) MarshalJSON() ([]byte, error) {
	charts := s.Charts
	if charts == nil {
		charts = []Chart{}
	}
	return json.Marshal(struct {
		Charts []Chart `json:"charts"`
	}{charts})
}

// FinalSet is the response payload: the chosen charts plus the untouched
// sheet grid for client side fallback.
type FinalSet struct {
	Charts   []Chart `json:"charts"`
	RawData  Grid    `json:"raw_data"`
	SheetURL string  `json:"sheet_url,omitempty"`
}

func (f FinalSet) MarshalJSON() ([]byte, error) {
	type alias FinalSet
	a := alias(f)
	if a.Charts == nil {
		a.Charts = []Chart{}
	}
	if a.RawData == nil {
		a.RawData = Grid{}
	}
	return json.Marshal(a)
}
