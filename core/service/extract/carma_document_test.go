package extract

import (
	"reflect"
	"testing"
)

func TestDocumentCoercion(t *testing.T) {
	d := Document{
		"s":      "text",
		"blank":  "  ",
		"num":    40.9,
		"numstr": " 14 ",
		"fstr":   "3.7",
		"bad":    "forty",
		"flag":   true,
		"yes":    "Yes",
		"null":   nil,
		"obj":    map[string]any{"impact": "high"},
		"arr":    []any{"a", 2.0, nil, "b"},
		"objs":   []any{map[string]any{"k": "v"}, "skip"},
	}

	if got := d.String("s", "def"); got != "text" {
		t.Errorf("String(s) = %q", got)
	}
	if got := d.String("blank", "def"); got != "def" {
		t.Errorf("String(blank) = %q", got)
	}
	if got := d.String("num", ""); got != "40.9" {
		t.Errorf("String(num) = %q", got)
	}
	if got := d.String("null", "def"); got != "def" {
		t.Errorf("String(null) = %q", got)
	}

	intCases := map[string]int{"num": 40, "numstr": 14, "fstr": 3, "bad": 0, "missing": 0, "null": 0, "flag": 1}
	for k, want := range intCases {
		if got := d.Int(k); got != want {
			t.Errorf("Int(%s) = %d, want %d", k, got, want)
		}
	}

	if got := d.Float("fstr"); got != 3.7 {
		t.Errorf("Float(fstr) = %v", got)
	}
	if got := d.Float("bad"); got != 0 {
		t.Errorf("Float(bad) = %v", got)
	}
	if !d.Bool("flag") || !d.Bool("yes") || d.Bool("s") {
		t.Errorf("Bool coercion wrong")
	}
	if d.Object("obj").String("impact", "") != "high" {
		t.Errorf("Object(obj) lost field")
	}
	if o := d.Object("missing"); o == nil || len(o) != 0 {
		t.Errorf("Object(missing) = %v", o)
	}
	if got := d.Strings("arr"); !reflect.DeepEqual(got, []string{"a", "2", "b"}) {
		t.Errorf("Strings(arr) = %v", got)
	}
	if got := d.Strings("s"); !reflect.DeepEqual(got, []string{"text"}) {
		t.Errorf("Strings(s) = %v", got)
	}
	if got := d.Strings("missing"); got == nil || len(got) != 0 {
		t.Errorf("Strings(missing) = %v", got)
	}
	if got := d.Objects("objs"); len(got) != 1 || got[0].String("k", "") != "v" {
		t.Errorf("Objects(objs) = %v", got)
	}
	if !d.Has("s") || d.Has("null") || d.Has("missing") {
		t.Errorf("Has wrong")
	}
}

func TestClamp01(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.87: 0.87, 1: 1, 87: 1} {
		if got := Clamp01(in); got != want {
			t.Errorf("Clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}
