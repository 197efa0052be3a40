package chart

import "fmt"

// Fixed naming for the drafted charts and the reshaped pie data.
const (
	LineTitle = "Student Scores Over Time"
	BarTitle  = "Student Scores Over Time (Bar Chart)"
	PieTitle  = "Student Scores Distribution"

	PieCategoryField = "Student"
	PieValueField    = "Score"

	// NoCategory stands in for a missing category value in pie titles.
	NoCategory = "N/A"
)

// BuildCandidates drafts the charts offered to the reasoning service: a line
// and a bar chart over every record, then a pie chart of the last record when
// there is one. It never fails; an empty header yields an empty set.
func BuildCandidates(header []string, records []Record) Set {
	if len(header) == 0 {
		return Set{Charts: []Chart{}}
	}
	series := valueSeries(header)
	data := records
	if data == nil {
		data = []Record{}
	}
	charts := []Chart{
		{Title: LineTitle, Type: TypeLine, XAxis: header[0], Data: data, Series: series},
		{Title: BarTitle, Type: TypeBar, XAxis: header[0], Data: data, Series: cloneSeries(series)},
	}
	if len(records) > 0 {
		last := records[len(records)-1]
		charts = append(charts, Chart{
			Title:  fmt.Sprintf("%s %s", PieTitle, pieParenthetical(header, last)),
			Type:   TypePie,
			XAxis:  PieCategoryField,
			Data:   pieData(header, last),
			Series: []Series{{Key: PieValueField}},
		})
	}
	return Set{Charts: charts}
}

func valueSeries(header []string) []Series {
	out := make([]Series, 0, len(header))
	for _, col := range header[1:] {
		out = append(out, Series{Key: col})
	}
	return out
}

func cloneSeries(s []Series) []Series {
	return append([]Series(nil), s...)
}

// pieData reshapes a single record into one {Student, Score} row per value
// column.
func pieData(header []string, last Record) []Record {
	if len(header) == 0 {
		return []Record{}
	}
	out := make([]Record, 0, len(header)-1)
	for _, col := range header[1:] {
		out = append(out, NewRecord(
			[]string{PieCategoryField, PieValueField},
			[]Value{Text(col), last.Value(col)},
		))
	}
	return out
}

// pieParenthetical names the row a pie chart was cut from.
func pieParenthetical(header []string, last Record) string {
	label := NoCategory
	if len(header) > 0 {
		if v, ok := last.Get(header[0]); ok && !v.IsNull() {
			label = v.String()
		}
	}
	return fmt.Sprintf("(Pie Chart for %s)", label)
}
