package types

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names the pipeline stage at which a failure occurred.
type Stage string

// Pipeline stages, in execution order.
const (
	StageBuilding       Stage = "building"
	StageValidating     Stage = "validating"
	StageBeforeTriggers Stage = "before-triggers"
	StageExecuting      Stage = "executing"
	StageAfterTriggers  Stage = "after-triggers"
)

// Sentinel errors shared across the core.
var (
	ErrNotFound   = errors.New("record not found")
	ErrInvalidKey = errors.New("invalid primary key value")
	ErrNoScope    = errors.New("no active environment scope")
	ErrClosed     = errors.New("database is closed")
)

// CompileError reports bad notation: an unknown field or parameter, a
// type mismatch, or a syntax error. It carries the offending token and
// its byte offset in the notation string.
type CompileError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *CompileError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("compile error at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("compile error at %d near %q: %s", e.Pos, e.Token, e.Msg)
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field string
	Msg   string
}

func (e FieldError) Error() string { return e.Field + ": " + e.Msg }

// ValidationError reports a record that fails its table's schema rules.
type ValidationError struct {
	Table  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Table, strings.Join(msgs, "; "))
}

// TriggerError reports a hook that rejected the operation.
type TriggerError struct {
	Table  string
	Phase  Phase
	Hook   string
	Reason error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger %s rejected %s on %s: %v", e.Hook, e.Phase, e.Table, e.Reason)
}

func (e *TriggerError) Unwrap() error { return e.Reason }

// AdapterError reports a storage-layer failure. The wrapped error is the
// driver's; retry policy belongs to the caller.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string { return "adapter " + e.Op + ": " + e.Err.Error() }

func (e *AdapterError) Unwrap() error { return e.Err }

// OpError wraps a failure with the stage it occurred at. Every error
// surfaced from a pipeline operation is an *OpError.
type OpError struct {
	Table string
	Stage Stage
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Stage, e.Table, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// StageOf returns the pipeline stage recorded on err, or "" when err
// carries none.
func StageOf(err error) Stage {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Stage
	}
	return ""
}
