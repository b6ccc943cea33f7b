// Package truncate bounds the rendered size of arbitrary values before they are
// embedded in a trace frame.
//
// A single budget is shared across the whole value passed to Value. Sequences
// and mappings are walked depth-first, left to right, and every scalar that is
// rendered to text consumes budget equal to its length in runes. Once the
// budget is exhausted, containers stop growing, and the scalar that crossed
// the limit is cut and suffixed with Marker. A mapping key that exhausts the
// budget is kept with a nil value. The result is hence a best-effort prefix of
// the value's rendered form, not a per-field limit.
//
// Mapping keys are rendered with fmt.Sprint. Keys of different types that
// render to the same text are suffixed with their type, as in "1 (int)".
//
// Value never panics, whatever the input.
package truncate

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBudget is the budget used when a non-positive budget is given.
	DefaultBudget = 1200
	// Marker is appended to a scalar that was cut to fit the budget.
	Marker = "...(truncated)"
	// CycleMarker replaces a reference back to a value that is already being
	// walked.
	CycleMarker = "<cycle>"

	maxNesting = 64
)

// Truncator applies Value with a fixed budget.
type Truncator struct {
	Budget int
}

// Truncate truncates v using t.Budget.
func (t Truncator) Truncate(v interface{}) interface{} { return Value(v, t.Budget) }

// Value truncates v so that the combined rendered length of all its scalars
// does not exceed budget plus one Marker.
//
// Absent values (nil, nil pointers, interfaces, maps and slices) come back as
// nil, and empty values come back empty; neither consumes budget. Scalars are
// returned as strings, sequences as []interface{} and mappings (maps and
// structs) as map[string]interface{}, so the result always encodes to JSON.
func Value(v interface{}, budget int) (out interface{}) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<untruncatable %T>", v)
		}
	}()
	w := &walker{budget: budget, seen: make(map[visit]bool)}
	return w.value(reflect.ValueOf(v), 0)
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	budget int
	used   int
	seen   map[visit]bool
}

func (w *walker) exhausted() bool { return w.used >= w.budget }

func (w *walker) value(rv reflect.Value, nesting int) interface{} {
	if !rv.IsValid() {
		return nil
	}
	if nesting > maxNesting {
		return w.scalar("<max nesting " + rv.Type().String() + ">")
	}

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil
		}
	}

	if rv.CanInterface() {
		switch x := rv.Interface().(type) {
		case error, fmt.Stringer:
			// fmt recovers from panicking Error and String methods.
			return w.scalar(fmt.Sprint(x))
		case []byte:
			if utf8.Valid(x) {
				return w.scalar(string(x))
			}
			return w.scalar(hex.EncodeToString(x))
		}
	}

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Ptr:
		return w.enter(rv, func() interface{} { return w.value(rv.Elem(), nesting+1) })
	case reflect.Interface:
		return w.value(rv.Elem(), nesting)
	case reflect.Slice:
		if rv.Len() == 0 {
			return []interface{}{}
		}
		return w.enter(rv, func() interface{} { return w.sequence(rv, nesting) })
	case reflect.Array:
		if rv.Len() == 0 {
			return []interface{}{}
		}
		return w.sequence(rv, nesting)
	case reflect.Map:
		if rv.Len() == 0 {
			return map[string]interface{}{}
		}
		return w.enter(rv, func() interface{} { return w.mapping(rv, nesting) })
	case reflect.Struct:
		return w.structure(rv, nesting)
	case reflect.String:
		return w.scalar(rv.String())
	default:
		return w.scalar(fmt.Sprint(rv))
	}
}

// enter guards against reference cycles. Only the references currently being
// walked are tracked, so shared but acyclic references render fully.
func (w *walker) enter(rv reflect.Value, fn func() interface{}) interface{} {
	key := visit{rv.Pointer(), rv.Type()}
	if w.seen[key] {
		return w.scalar(CycleMarker)
	}
	w.seen[key] = true
	defer delete(w.seen, key)
	return fn()
}

func (w *walker) sequence(rv reflect.Value, nesting int) interface{} {
	out := make([]interface{}, 0, minInt(rv.Len(), 16))
	for i := 0; i < rv.Len(); i++ {
		if w.exhausted() {
			break
		}
		out = append(out, w.value(rv.Index(i), nesting+1))
	}
	return out
}

func (w *walker) mapping(rv reflect.Value, nesting int) interface{} {
	type entry struct {
		text string
		key  reflect.Value
	}
	keys := rv.MapKeys()
	entries := make([]entry, 0, len(keys))
	seen := make(map[string]int, len(keys))
	for _, k := range keys {
		text := fmt.Sprint(k)
		seen[text]++
		entries = append(entries, entry{text, k})
	}
	// Distinct keys may render to the same text, e.g. 1 and "1".
	for i, e := range entries {
		if seen[e.text] > 1 {
			entries[i].text = fmt.Sprintf("%s (%s)", e.text, keyType(e.key))
		}
	}
	// Map iteration order is random; sort to make the kept prefix stable.
	sort.Slice(entries, func(i, j int) bool { return entries[i].text < entries[j].text })

	out := make(map[string]interface{}, minInt(len(entries), 16))
	for _, e := range entries {
		if w.exhausted() {
			break
		}
		k := w.scalar(e.text)
		if w.exhausted() {
			// The key used up the budget; its value is not rendered.
			out[k] = nil
			break
		}
		out[k] = w.value(rv.MapIndex(e.key), nesting+1)
	}
	return out
}

// keyType names the dynamic type of a map key.
func keyType(k reflect.Value) string {
	if k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	return k.Type().String()
}

func (w *walker) structure(rv reflect.Value, nesting int) interface{} {
	typ := rv.Type()
	out := make(map[string]interface{})
	exported := 0
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			if tagName := strings.Split(tag, ",")[0]; tagName != "" {
				name = tagName
			}
		}
		exported++
		if w.exhausted() {
			break
		}
		k := w.scalar(name)
		if w.exhausted() {
			out[k] = nil
			break
		}
		out[k] = w.value(rv.Field(i), nesting+1)
	}
	if exported == 0 {
		return w.scalar(fmt.Sprintf("%+v", rv))
	}
	return out
}

func (w *walker) scalar(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return s
	}
	before := w.used
	w.used += n
	if w.used <= w.budget {
		return s
	}
	keep := w.budget - before
	if keep < 0 {
		keep = 0
	}
	return cutRunes(s, keep) + Marker
}

func cutRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
