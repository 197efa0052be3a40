package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const fence = "```"

// MalformedLLMResponseError carries the offending reply text and the decode
// failure so both can be surfaced to the caller.
type MalformedLLMResponseError struct {
	Raw string
	Err error
}

func (e *MalformedLLMResponseError) Error() string {
	return fmt.Sprintf("error parsing LLM response: %v; raw response: %s", e.Err, e.Raw)
}

func (e *MalformedLLMResponseError) Unwrap() error { return e.Err }

var errNotObject = errors.New("top-level value must be a JSON object")

// StripFences removes formatting the model tends to wrap JSON in: leading
// whitespace, a surrounding ``` block (with or without a language tag on the
// opening line) and a bare "json" prefix. Each step only applies when its
// shape matches. The steps repeat until the text stops changing, so a tag in
// front of a fence is handled too and the result is a fixed point.
func StripFences(raw string) string {
	s := raw
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOnce(raw string) string {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	if strings.HasPrefix(s, fence) && strings.HasSuffix(strings.TrimRightFunc(s, unicode.IsSpace), fence) {
		s = strings.TrimRightFunc(s, unicode.IsSpace)
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			s = strings.Join(lines[1:len(lines)-1], "\n")
		} else {
			s = strings.TrimSuffix(strings.TrimPrefix(s, fence), fence)
		}
		s = strings.TrimSpace(s)
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

// ParseResponse decodes the reasoning service reply into a chart set. Only the
// exact "charts" key is read; other top-level keys are ignored and a missing
// "charts" key yields an empty set.
// Any decode failure returns a *MalformedLLMResponseError and no charts.
func ParseResponse(raw string) (Set, error) {
	s := StripFences(raw)
	if !strings.HasPrefix(s, "{") {
		if err := json.Unmarshal([]byte(s), new(any)); err != nil {
			return Set{}, &MalformedLLMResponseError{Raw: s, Err: err}
		}
		return Set{}, &MalformedLLMResponseError{Raw: s, Err: errNotObject}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return Set{}, &MalformedLLMResponseError{Raw: s, Err: err}
	}
	var charts []Chart
	if v, ok := fields["charts"]; ok {
		if err := json.Unmarshal(v, &charts); err != nil {
			return Set{}, &MalformedLLMResponseError{Raw: s, Err: err}
		}
	}
	if charts == nil {
		charts = []Chart{}
	}
	return Set{Charts: charts}, nil
}
