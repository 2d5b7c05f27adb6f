package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(ErrCodeInternal, "should vanish", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeInternal, "failed to persist profile", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	var se *StructuredError
	if !stderrors.As(err, &se) {
		t.Fatalf("expected StructuredError, got %T", err)
	}
	if se.Code != ErrCodeInternal {
		t.Fatalf("expected code %s, got %s", ErrCodeInternal, se.Code)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"structured", New(ErrCodeValidation, "bad profile"), ErrCodeValidation},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeTimeout, "deadline")), ErrCodeTimeout},
		{"plain error", stderrors.New("plain"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := Wrap(ErrCodeClusterUnreachable, "api server down", stderrors.New("dial tcp"))
	if !IsCode(err, ErrCodeClusterUnreachable) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(err, ErrCodeTimeout) {
		t.Fatal("expected IsCode to reject other codes")
	}
	if IsCode(stderrors.New("plain"), ErrCodeInternal) {
		t.Fatal("plain errors carry no code")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeConcurrentOperation, "profile busy").WithDetail("profile", "demo")
	if err.Details["profile"] != "demo" {
		t.Fatalf("expected detail to be recorded, got %#v", err.Details)
	}
}
