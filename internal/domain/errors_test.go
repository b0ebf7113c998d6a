package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsStaleCart(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "not found sentinel",
			err:  ErrCartNotFound,
			want: true,
		},
		{
			name: "remote error with not found kind",
			err:  &RemoteError{Kind: ErrCartNotFound, Op: "get cart", StatusCode: 404},
			want: true,
		},
		{
			name: "wrapped remote error",
			err:  fmt.Errorf("add line: %w", &RemoteError{Kind: ErrCartNotFound, Op: "add", StatusCode: 404}),
			want: true,
		},
		{
			name: "transient error",
			err:  ErrRemoteTransient,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStaleCart(tt.err); got != tt.want {
				t.Errorf("IsStaleCart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransientAndConflict(t *testing.T) {
	transient := &RemoteError{Kind: ErrRemoteTransient, Op: "create cart", StatusCode: 503}
	conflict := &RemoteError{Kind: ErrCartConflict, Op: "add line", StatusCode: 400, Message: "variant has no price"}

	if !IsTransient(transient) {
		t.Error("expected transient error to be detected")
	}
	if IsTransient(conflict) {
		t.Error("conflict must not be transient")
	}
	if !IsConflict(conflict) {
		t.Error("expected conflict error to be detected")
	}
	if !errors.Is(errors.Join(errors.New("context"), conflict), ErrCartConflict) {
		t.Error("expected joined error to match conflict")
	}
}

func TestUserMessage(t *testing.T) {
	conflict := &RemoteError{Kind: ErrCartConflict, Op: "add line", StatusCode: 400, Message: "variant has no price"}
	if got := UserMessage(conflict); got != "variant has no price" {
		t.Errorf("expected remote message verbatim, got %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("expected empty message for nil error, got %q", got)
	}
	if got := UserMessage(ErrRemoteTransient); got == "" {
		t.Error("expected message for transient error")
	}
}

func TestRemoteErrorString(t *testing.T) {
	err := &RemoteError{Kind: ErrCartNotFound, Op: "get cart", StatusCode: 404}
	if err.Error() != "get cart: remote cart not found (status 404)" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}
