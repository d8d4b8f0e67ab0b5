package apperr

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestConfigError_IsBoth(t *testing.T) {
	err := &ConfigError{Op: "load layer", Err: fs.ErrNotExist}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("expected ErrConfiguration")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected wrapped cause")
	}
}

func TestExhaustedError_Message(t *testing.T) {
	err := error(&ExhaustedError{Group: 0, Target: 100, Produced: 42, Failures: 10})
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatal("expected ErrGenerationExhausted")
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Target != 100 {
		t.Fatalf("errors.As failed: %v", err)
	}
	if !strings.Contains(err.Error(), "layer configuration 0") {
		t.Errorf("message should name the group: %q", err.Error())
	}
}

func TestWorkerFaultError_Is(t *testing.T) {
	cause := errors.New("boom")
	err := &WorkerFaultError{Edition: 3, Attempts: 2, Cause: cause}
	if !errors.Is(err, ErrWorkerFault) || !errors.Is(err, cause) {
		t.Errorf("unexpected chain: %v", err)
	}
}
