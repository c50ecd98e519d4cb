package capture

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"errortrail/src/registry"
)

type stackTracer interface {
	StackTrace() string
}

// FromError describes an error returned by a request handler. The stack is
// the one recorded by the error when it has one, else the current stack.
func FromError(err error, r *http.Request) *registry.Failure {
	stack := ""
	var st stackTracer
	if errors.As(err, &st) {
		stack = st.StackTrace()
	}
	if stack == "" {
		stack = string(debug.Stack())
	}

	f := &registry.Failure{
		Kind:       registry.KindOf(err),
		Message:    err.Error(),
		StackTrace: stack,
		Err:        err,
	}
	withRequest(f, r)
	return f
}

// FromPanic describes a recovered panic value. stack should be taken inside
// the deferred recover so it still shows the panicking frames.
func FromPanic(value any, stack []byte, r *http.Request) *registry.Failure {
	f := &registry.Failure{
		StackTrace: string(stack),
		Recovered:  true,
	}

	if err, ok := value.(error); ok {
		f.Kind = registry.KindOf(err)
		f.Message = err.Error()
		f.Err = err
	} else {
		f.Kind = registry.Panic
		f.Message = fmt.Sprint(value)
		f.Err = fmt.Errorf("panic: %v", value)
	}

	withRequest(f, r)
	return f
}

func withRequest(f *registry.Failure, r *http.Request) {
	if r == nil {
		return
	}
	f.Method = r.Method
	f.RequestID = r.Header.Get("X-Request-ID")
	if r.URL != nil {
		f.Path = r.URL.Path
	}
}
