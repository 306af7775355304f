package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Document is a decoded completion: loosely typed until a call site coerces it.
type Document map[string]any

// String returns the value at key as text. Numbers and booleans are formatted;
// missing, null or empty values return def.
func (d Document) String(key, def string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return def
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Int coerces numbers (truncated) and numeric strings; anything else is 0.
func (d Document) Int(key string) int {
	switch t := d[key].(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(t)
	case int:
		return t
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

// Float coerces numbers and numeric strings; anything else is 0.
func (d Document) Float(key string) float64 {
	switch t := d[key].(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

// Bool accepts JSON booleans and "true"/"yes" strings.
func (d Document) Bool(key string) bool {
	switch t := d[key].(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes"
	}
	return false
}

// Object returns the nested object at key, or an empty Document.
func (d Document) Object(key string) Document {
	if m, ok := d[key].(map[string]any); ok {
		return Document(m)
	}
	return Document{}
}

// Strings returns the string elements of an array value. A single string is
// returned as a one-element list.
func (d Document) Strings(key string) []string {
	out := []string{}
	switch t := d[key].(type) {
	case []any:
		for _, it := range t {
			switch v := it.(type) {
			case string:
				out = append(out, v)
			case nil:
			default:
				out = append(out, fmt.Sprint(v))
			}
		}
	case string:
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// Objects returns the object elements of an array value.
func (d Document) Objects(key string) []Document {
	var out []Document
	if arr, ok := d[key].([]any); ok {
		for _, it := range arr {
			if m, ok := it.(map[string]any); ok {
				out = append(out, Document(m))
			}
		}
	}
	return out
}

// Has reports whether key is present and not null.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
