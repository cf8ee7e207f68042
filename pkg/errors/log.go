package errors

import "github.com/go-drift/modelkit/pkg/logging"

// LogHandler is an ErrorHandler that writes through the runtime logger.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

// HandleError logs an Error.
func (h *LogHandler) HandleError(err *Error) {
	if err == nil {
		return
	}
	log := logging.For("errors")
	ev := log.Error().Str("op", err.Op).Str("kind", err.Kind.String())
	if err.Entity != "" {
		ev = ev.Str("entity", err.Entity)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Err(err.Err).Msg("runtime error")
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	log := logging.For("errors")
	ev := log.Error().Str("kind", err.Kind.String()).Interface("value", err.Value)
	if err.Op != "" {
		ev = ev.Str("op", err.Op)
	}
	if err.Entity != "" {
		ev = ev.Str("entity", err.Entity)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg("recovered panic")
}
