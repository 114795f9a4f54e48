package chat

import (
	"errors"
	"fmt"
	"testing"
)

// The flow wraps pipeline failures before returning them; handlers rely
// on errors.Is to pick status codes, so wrapping must preserve the
// sentinels.
func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sentinel error
	}{
		{name: "ErrEmptyQuery", sentinel: ErrEmptyQuery},
		{name: "ErrInvalidTopK", sentinel: ErrInvalidTopK},
		{name: "ErrMissingConversation", sentinel: ErrMissingConversation},
		{name: "ErrInvalidConversation", sentinel: ErrInvalidConversation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("%w: request rejected", tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.sentinel)
			}
		})
	}
}
