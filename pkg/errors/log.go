package errors

import "go.uber.org/zap"

// ZapHandler is an ErrorHandler that logs errors through a zap logger.
type ZapHandler struct {
	logger *zap.Logger
	// Verbose enables detailed output including stack traces.
	Verbose bool
}

// NewZapHandler returns a handler writing to the given logger.
// A nil logger falls back to zap.NewNop().
func NewZapHandler(logger *zap.Logger) *ZapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapHandler{logger: logger}
}

// HandleError logs a VitrineError.
func (h *ZapHandler) HandleError(err *VitrineError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Stringer("kind", err.Kind),
		zap.Error(err.Err),
	}
	if err.NodeID != "" {
		fields = append(fields, zap.String("node", err.NodeID))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger.Warn("render error", fields...)
}

// HandlePanic logs a PanicError.
func (h *ZapHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Any("value", err.Value),
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger.Error("recovered panic", fields...)
}
