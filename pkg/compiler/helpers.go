package compiler

import (
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"time"

	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/rendercontext"
)

// HelperSet is the named set of functions a Compiler exposes to templates,
// on top of the sprig HTML function map.
type HelperSet map[string]any

// DefaultHelpers returns a fresh helper set with the document helpers.
func DefaultHelpers() HelperSet {
	return HelperSet{
		"ifCond":       IfCond,
		"equals":       Equals,
		"eqIgnoreCase": EqIgnoreCase,
		"formatDate":   FormatDate,
		"add":          Add,
	}
}

// With returns a copy of h with fn registered under name.
func (h HelperSet) With(name string, fn any) HelperSet {
	out := make(HelperSet, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	out[name] = fn
	return out
}

func (h HelperSet) funcMap() template.FuncMap {
	m := make(template.FuncMap, len(h))
	for k, v := range h {
		m[k] = v
	}
	return m
}

// IfCond evaluates "a op b" where op is one of ===, !==, > or <.
// Numbers compare by value regardless of their Go type; strings compare
// lexically. Any other operator is an error.
func IfCond(a any, op string, b any) (bool, error) {
	switch op {
	case "===":
		return strictEqual(a, b), nil
	case "!==":
		return !strictEqual(a, b), nil
	case ">", "<":
		c, err := compare(a, b)
		if err != nil {
			return false, err
		}
		if op == ">" {
			return c > 0, nil
		}
		return c < 0, nil
	default:
		return false, fmt.Errorf("ifCond: unknown operator %q", op)
	}
}

// Equals reports whether a and b are strictly equal.
func Equals(a, b any) bool {
	return strictEqual(a, b)
}

// EqIgnoreCase compares the string forms of a and b under Unicode case folding.
func EqIgnoreCase(a, b any) bool {
	return strings.EqualFold(fmt.Sprint(a), fmt.Sprint(b))
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// FormatDate renders v as a long-form date ("January 2, 2006").
// It accepts time.Time, *time.Time and RFC 3339 or YYYY-MM-DD strings.
// Nil, empty and unparsable values render as "N/A".
func FormatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return rendercontext.LongDate(&t, time.UTC)
	case *time.Time:
		return rendercontext.LongDate(t, time.UTC)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return defaults.DateUnavailable
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return rendercontext.LongDate(&parsed, time.UTC)
			}
		}
	}
	return defaults.DateUnavailable
}

// Add returns a + b.
func Add(a, b int) int {
	return a + b
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && x == y
	}
	if x, ok := toString(a); ok {
		y, ok := toString(b)
		return ok && x == y
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, error) {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := toString(a); ok {
		if y, ok := toString(b); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("ifCond: cannot compare %T with %T", a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
