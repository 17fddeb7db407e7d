// Package errors provides structured error handling for the Vitrine
// rendering core.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindParse indicates a template parse failure, terminal for that
	// render call.
	KindParse
	// KindLayout indicates a malformed tree rejected by the layout adapter.
	KindLayout
	// KindTimeout indicates a sync flush that gave up waiting on background
	// work; rendering proceeds with whatever was ready.
	KindTimeout
	// KindCancelled indicates a render task cancelled between checkpoints.
	KindCancelled
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindLayout:
		return "layout"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// VitrineError represents a structured error in the rendering core.
type VitrineError struct {
	// Op is the operation that failed (e.g., "layout.Adapter.ComputeLayout").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// NodeID is the tree node involved, if applicable.
	NodeID string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *VitrineError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s [%s] node=%s: %v", e.Op, e.Kind, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *VitrineError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "pipeline.Pipeline.prepare").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the rendering core.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *VitrineError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
