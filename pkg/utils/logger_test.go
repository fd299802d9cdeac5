package utils

import (
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true, "")
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(true) returned nil logger")
		}
		_ = logger.Sync()
	})

	t.Run("production mode honours level", func(t *testing.T) {
		logger, err := NewLogger(false, "warn")
		if err != nil {
			t.Fatalf("NewLogger(false, warn) error: %v", err)
		}
		if logger.Core().Enabled(-1) {
			t.Error("debug level should be disabled at warn")
		}
		_ = logger.Sync()
	})

	t.Run("bad level is an error", func(t *testing.T) {
		if _, err := NewLogger(false, "chatty"); err == nil {
			t.Error("expected error for unknown level")
		}
	})
}
