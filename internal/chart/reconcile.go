package chart

import (
	"regexp"
	"strings"
)

var firstParenthetical = regexp.MustCompile(`\([^()]*\)`)

// Reconcile refreshes a previously returned chart set against new records
// without asking the reasoning service again. With no previous set it
// returns the candidate drafts; a supplied set, even an empty one, is
// refreshed as given. Charts keep their order, titles and
// series: line and bar charts get the new records and x axis, pie charts are
// recut from the new last record and have their title's first parenthesised
// segment rewritten, and any other chart type is returned as-is.
//
// Series keys are not checked against the new header; a key that no longer
// exists simply has no field in the refreshed data. See StaleSeries.
func Reconcile(previous *Set, header []string, records []Record) Set {
	if previous == nil {
		return BuildCandidates(header, records)
	}
	out := make([]Chart, 0, len(previous.Charts))
	for _, c := range previous.Charts {
		out = append(out, reconcileChart(c, header, records))
	}
	return Set{Charts: out}
}

func reconcileChart(c Chart, header []string, records []Record) Chart {
	if !c.Type.Known() {
		return c
	}
	next := c.Clone()
	if c.Type == TypePie {
		var last Record
		if len(records) > 0 {
			last = records[len(records)-1]
		}
		next.Data = pieData(header, last)
		next.Title = ReplaceParenthetical(c.Title, pieParenthetical(header, last))
		return next
	}
	next.Data = records
	if next.Data == nil {
		next.Data = []Record{}
	}
	if len(header) > 0 {
		next.XAxis = header[0]
	}
	return next
}

// ReplaceParenthetical swaps the first "(...)" segment of title for
// replacement, leaving the rest of the title verbatim. When title has no
// parenthesised segment the replacement is appended after a space.
func ReplaceParenthetical(title, replacement string) string {
	loc := firstParenthetical.FindStringIndex(title)
	if loc == nil {
		trimmed := strings.TrimRight(title, " ")
		if trimmed == "" {
			return replacement
		}
		return trimmed + " " + replacement
	}
	return title[:loc[0]] + replacement + title[loc[1]:]
}

// StaleSeries lists series keys of line and bar charts that are not columns
// of header, in first-seen order.
func StaleSeries(charts []Chart, header []string) []string {
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[h] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range charts {
		if c.Type != TypeLine && c.Type != TypeBar {
			continue
		}
		for _, s := range c.Series {
			if !cols[s.Key] && !seen[s.Key] {
				seen[s.Key] = true
				out = append(out, s.Key)
			}
		}
	}
	return out
}
