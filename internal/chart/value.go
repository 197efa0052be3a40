package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindText
	kindNumber
	// kindRaw holds any other JSON value (bool, object, array) received from
	// the reasoning service or a client. It is re-emitted verbatim.
	kindRaw
)

// Value is a single cell of a Record: text, a decimal number, or null.
// The zero Value is null.
type Value struct {
	kind valueKind
	text string
	num  float64
	raw  json.RawMessage
}

// Null returns the absent value.
func Null() Value { return Value{} }

// Text wraps s as a text value.
func Text(s string) Value { return Value{kind: kindText, text: s} }

// Number wraps f as a numeric value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

func (v Value) IsNull() bool   { return v.kind == kindNull }
func (v Value) IsNumber() bool { return v.kind == kindNumber }
func (v Value) IsText() bool   { return v.kind == kindText }

// Float returns the numeric value and whether v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == kindNumber
}

// String renders v for use in titles and logs. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindText:
		return json.Marshal(v.text)
	case kindNumber:
		return json.Marshal(v.num)
	case kindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty value")
	}
	switch b[0] {
	case 'n':
		*v = Null()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*v = Number(f)
		return nil
	default:
		if !json.Valid(b) {
			return fmt.Errorf("invalid value %q", string(b))
		}
		*v = Value{kind: kindRaw, raw: append(json.RawMessage(nil), b...)}
		return nil
	}
}

// decimalPattern accepts plain decimal notation with an optional exponent.
// Hex floats, underscores, thousands separators and inf/nan are rejected.
var decimalPattern = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

// ParseCell converts a raw cell into a number when the whole cell is a
// decimal literal (surrounding whitespace allowed) and returns the original
// text unchanged otherwise.
func ParseCell(cell string) Value {
	s := strings.TrimSpace(cell)
	if !decimalPattern.MatchString(s) {
		return Text(cell)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out of range
		return Text(cell)
	}
	return Number(f)
}
