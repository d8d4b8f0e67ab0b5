// Package apperr holds the error kinds shared across the generation pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrGenerationExhausted = errors.New("generation exhausted")
	ErrWorkerFault         = errors.New("worker fault")
	ErrIncompatible        = errors.New("incompatible selection")
	ErrDuplicate           = errors.New("duplicate dna")
)

// ConfigError reports a fatal problem with the run configuration or the
// layer tree it points at.
type ConfigError struct {
	Op  string
	Err error
}

// Configf builds a ConfigError from a format string.
func Configf(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// ExhaustedError is returned when a configuration group keeps producing
// duplicate or incompatible DNA until the retry tolerance is reached.
type ExhaustedError struct {
	Group    int
	Target   int
	Produced int
	Failures int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("layer configuration %d: need more layers or elements to grow edition to %d artworks (produced %d, %d consecutive failures)",
		e.Group, e.Target, e.Produced, e.Failures)
}

func (e *ExhaustedError) Unwrap() error { return ErrGenerationExhausted }

// WorkerFaultError is emitted when an edition could not be rendered after
// every allowed attempt.
type WorkerFaultError struct {
	Edition  int
	Attempts int
	Cause    error
}

func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("edition %d: worker fault after %d attempt(s): %v", e.Edition, e.Attempts, e.Cause)
}

func (e *WorkerFaultError) Unwrap() []error { return []error{ErrWorkerFault, e.Cause} }
