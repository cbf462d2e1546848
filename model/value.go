package model

import (
	"bytes"
	"math"

	"github.com/goccy/go-json"
)

type ValueKind int

const (
	// Null covers JSON null and absent values.
	Null ValueKind = iota
	TextKind
	Number
	List
	// Invalid marks a value that fit none of the supported shapes. The raw
	// JSON is retained so historical data round-trips untouched.
	Invalid
)

// Value is the answer payload: exactly one of text, number, string list or
// null. Anything else decodes as Invalid and is rejected by validation
// wherever the question type constrains the shape.
type Value struct {
	kind   ValueKind
	text   string
	number float64
	list   []string
	raw    json.RawMessage
}

func TextValue(s string) Value        { return Value{kind: TextKind, text: s} }
func NumberValue(n float64) Value     { return Value{kind: Number, number: n} }
func ListValue(items ...string) Value { return Value{kind: List, list: items} }

// NullValue is the zero Value.
var NullValue = Value{}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

// IsEmpty reports the non-checkbox notion of an empty answer: null or an
// empty string.
func (v Value) IsEmpty() bool {
	return v.kind == Null || (v.kind == TextKind && v.text == "")
}

// Text returns the string payload, or "" for any other kind.
func (v Value) Text() string {
	if v.kind != TextKind {
		return ""
	}
	return v.text
}

// List returns the string-list payload, or nil for any other kind.
func (v Value) List() []string {
	if v.kind != List {
		return nil
	}
	return v.list
}

// AsNumber coerces the value to a finite number. Null and empty text coerce
// to zero, matching the submission encoding where unanswered numeric fields
// arrive as empty strings; lists and invalid shapes do not coerce.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case Number:
		return v.number, !math.IsInf(v.number, 0) && !math.IsNaN(v.number)
	case Null:
		return 0, true
	case TextKind:
		if v.text == "" {
			return 0, true
		}
		var n float64
		if err := json.Unmarshal([]byte(v.text), &n); err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Value{kind: TextKind, text: s}
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err == nil {
			*v = Value{kind: List, list: items}
			return nil
		}
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err == nil {
			*v = Value{kind: Number, number: n}
			return nil
		}
	}

	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	*v = Value{kind: Invalid, raw: raw}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case TextKind:
		return json.Marshal(v.text)
	case Number:
		return json.Marshal(v.number)
	case List:
		return json.Marshal(v.list)
	case Invalid:
		return v.raw, nil
	}
	return []byte("null"), nil
}
