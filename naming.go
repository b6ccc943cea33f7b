package flowtrace

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"runtime"
	"strings"
	"unicode"
)

// TracerNamed is an interface that allows types to customize their
// name shown in frames and logs.
type TracerNamed interface {
	TracerName() string
}

func tracerName(obj interface{}) string {
	switch t := obj.(type) {
	case string:
		return t
	case TracerNamed:
		return t.TracerName()
	case nil:
		return ""
	}

	switch obj {
	case os.Stdin:
		return "os.Stdin"
	case os.Stdout:
		return "os.Stdout"
	case os.Stderr:
		return "os.Stderr"
	case io.Discard:
		return "io.Discard"
	default:
		return fmt.Sprintf("%T", obj)
	}
}

// fmtFrameName appends the name of the traced function (fnName) to the
// tracer name, if set.
func fmtFrameName(tracerName, fnName string) string {
	if len(tracerName) != 0 && len(fnName) != 0 {
		return tracerName + "." + fnName
	}
	name := tracerName + fnName
	if len(name) != 0 {
		return name
	}
	return "<unnamed_frame>"
}

// funcName resolves the short name of fn, e.g. "processImages" for
// "github.com/foo/bar/pipeline.processImages". Closures keep their
// compiler-assigned suffix, e.g. "main.func1".
func funcName(fn interface{}) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// sanitizeFileName replaces everything but letters, digits, '.', '-' and '_'
// with '_', so the root function name can be embedded in a file name. The
// sequence "__" is collapsed, as it separates the name from the timestamp.
func sanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevUnderscore := false
	for _, r := range name {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-') {
			r = '_'
		}
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "unnamed"
	}
	return s
}
