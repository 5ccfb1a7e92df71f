package tts_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/soundforge/pkg/provider/tts"
)

func TestStatusError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		want   error // nil means "some plain error" unless status is 2xx
	}{
		{"ok", 200, nil},
		{"created", 201, nil},
		{"unauthorized", 401, tts.ErrAuth},
		{"forbidden", 403, tts.ErrAuth},
		{"rate limited", 429, tts.ErrTransient},
		{"server error", 500, tts.ErrTransient},
		{"bad gateway", 502, tts.ErrTransient},
		{"bad request", 400, nil},
		{"not found", 404, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tts.StatusError("testprov", tt.status, "body")
			switch {
			case tt.status < 300:
				if err != nil {
					t.Errorf("StatusError(%d) = %v, want nil", tt.status, err)
				}
			case tt.want != nil:
				if !errors.Is(err, tt.want) {
					t.Errorf("StatusError(%d) = %v, want %v", tt.status, err, tt.want)
				}
			default:
				if err == nil {
					t.Fatalf("StatusError(%d) = nil, want plain error", tt.status)
				}
				if errors.Is(err, tts.ErrAuth) || errors.Is(err, tts.ErrTransient) {
					t.Errorf("StatusError(%d) = %v, must not match a sentinel", tt.status, err)
				}
			}
		})
	}
}

func TestUsageRemaining(t *testing.T) {
	t.Parallel()
	u := tts.Usage{CharactersUsed: 300, CharacterLimit: 1000}
	if got := u.Remaining(); got != 700 {
		t.Errorf("Remaining() = %d, want 700", got)
	}
}
