package flowtrace

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

const (
	// PanicExceptionType is the exception type of frames whose invocation
	// panicked.
	PanicExceptionType = "panic"
	// GoexitExceptionType is the exception type of frames whose goroutine
	// exited through runtime.Goexit, e.g. by t.FailNow().
	GoexitExceptionType = "goexit"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// exceptionFrom describes err. If err, or any error it wraps, carries a
// github.com/pkg/errors stack trace, that is used as the traceback.
// Otherwise the stack of the calling goroutine is used.
func exceptionFrom(err error) *Exception {
	exc := &Exception{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
	var st stackTracer
	if errors.As(err, &st) {
		exc.Traceback = fmt.Sprintf("%+v", st.StackTrace())
	} else {
		exc.Traceback = string(debug.Stack())
	}
	return exc
}

func panicException(v interface{}) *Exception {
	exc := &Exception{
		Type:      PanicExceptionType,
		Message:   fmt.Sprint(v),
		Traceback: string(debug.Stack()),
	}
	if err, ok := v.(error); ok {
		exc.Message = err.Error()
	}
	return exc
}

func goexitException() *Exception {
	return &Exception{
		Type:      GoexitExceptionType,
		Message:   "goroutine exited before the traced function returned",
		Traceback: string(debug.Stack()),
	}
}
