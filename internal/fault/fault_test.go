package fault

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := New("squad/formation", "no rotation table for %s", "top_right")
	got := err.Error()
	if !strings.Contains(got, "squad/formation") || !strings.Contains(got, "top_right") {
		t.Fatalf("expected source and detail in message, got %q", got)
	}
	if !strings.HasPrefix(got, "error:") {
		t.Fatalf("expected error severity prefix, got %q", got)
	}
}

func TestAs_ThroughWrap(t *testing.T) {
	base := WithSeverity(SevWarn, "route", "blind entry")
	wrapped := fmt.Errorf("plan squad: %w", base)

	fe, ok := As(wrapped)
	if !ok {
		t.Fatal("expected fault to be found through wrap")
	}
	if fe.Severity != SevWarn {
		t.Fatalf("expected warn, got %s", fe.Severity)
	}
	if IsFatal(wrapped) {
		t.Fatal("warn fault should not be fatal")
	}
}

func TestIs_PlainError(t *testing.T) {
	if Is(errors.New("disk full")) {
		t.Fatal("plain errors are not faults")
	}
	if !IsFatal(WithSeverity(SevFatal, "", "boom")) {
		t.Fatal("expected fatal fault")
	}
}

func TestNew_DefaultsToErrorSeverity(t *testing.T) {
	err := New("squad/planner", "rally missing")
	if err.Severity != SevError {
		t.Fatalf("expected error severity, got %s", err.Severity)
	}
	var plain error = err
	if !Is(plain) || IsFatal(plain) {
		t.Fatalf("expected a non-fatal fault, got %v", plain)
	}
}
