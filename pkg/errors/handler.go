package errors

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

type handlerBox struct{ h ErrorHandler }

var handler atomic.Pointer[handlerBox]

func init() {
	handler.Store(&handlerBox{h: &LogHandler{}})
}

// SetHandler installs h as the process-wide error handler and returns the
// one it replaces. Passing nil restores a LogHandler.
func SetHandler(h ErrorHandler) ErrorHandler {
	if h == nil {
		h = &LogHandler{}
	}
	return handler.Swap(&handlerBox{h: h}).h
}

// Handler returns the installed error handler.
func Handler() ErrorHandler {
	return handler.Load().h
}

// Report hands err to the installed handler, stamping it if needed.
func Report(err *Error) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// Recover stops a panic unwinding through the deferring function and
// reports it as a *PanicError for op and entity (which may be empty). A
// panic carrying an *Error keeps that error's kind and, when entity is
// empty, its entity. onPanic, if not nil, receives the report.
//
//	defer errors.Recover("core.Observe", id.String(), nil)
func Recover(op, entity string, onPanic func(p *PanicError)) {
	r := recover()
	if r == nil {
		return
	}
	p := &PanicError{
		Op:         op,
		Kind:       KindPanic,
		Entity:     entity,
		Value:      r,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
	if e, ok := r.(*Error); ok {
		p.Kind = e.Kind
		if p.Entity == "" {
			p.Entity = e.Entity
		}
	}
	Handler().HandlePanic(p)
	if onPanic != nil {
		onPanic(p)
	}
}

// CaptureStack renders the caller's stack, one "function\n\tfile:line"
// pair per frame, omitting CaptureStack and its direct caller.
func CaptureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		sb.WriteString(f.Function + "\n\t" + f.File + ":" + strconv.Itoa(f.Line) + "\n")
		if !more {
			return sb.String()
		}
	}
}
