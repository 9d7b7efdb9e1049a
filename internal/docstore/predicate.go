package docstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type predicateKind int

const (
	predEq predicateKind = iota
	predArrayContains
	predCreatedBefore
)

type Predicate struct {
	kind  predicateKind
	field string
	value any
	at    time.Time
}

// Eq matches documents whose scalar field equals value.
func Eq(field string, value any) Predicate {
	return Predicate{kind: predEq, field: field, value: value}
}

// ArrayContains matches documents whose array field has value as a member.
func ArrayContains(field string, value any) Predicate {
	return Predicate{kind: predArrayContains, field: field, value: value}
}

// CreatedBefore matches documents created strictly before t.
func CreatedBefore(t time.Time) Predicate {
	return Predicate{kind: predCreatedBefore, at: t}
}

// maxIndexedValue bounds the encoded length of indexed scalar values. Longer
// strings are stored but cannot be matched with Eq.
const maxIndexedValue = 256

// normalize brings a Go value into its JSON shape so typed strings, ints and
// floats compare the same way once stored.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeValue renders a normalized scalar for the field index. ok is false for
// values that are not indexable.
func encodeValue(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = "s:" + x
	case bool:
		s = "b:" + strconv.FormatBool(x)
	case float64:
		s = "n:" + strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return "", false
	}
	if len(s) > maxIndexedValue {
		return "", false
	}
	return s, true
}

func decodeValue(s string) any {
	if len(s) < 2 {
		return s
	}
	body := s[2:]
	switch s[:2] {
	case "b:":
		return body == "true"
	case "n:":
		f, err := strconv.ParseFloat(body, 64)
		if err == nil {
			return f
		}
	}
	return body
}

// plainNumbers rewrites the json.Number values the JSON column scans into
// float64, matching what array members decode to.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, inner := range t {
			t[k] = plainNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = plainNumbers(inner)
		}
		return t
	}
	return v
}

func encodeArg(v any) (string, error) {
	n, err := normalize(v)
	if err != nil {
		return "", err
	}
	enc, ok := encodeValue(n)
	if !ok {
		return "", fmt.Errorf("value of type %T cannot be used in a predicate", v)
	}
	return enc, nil
}
