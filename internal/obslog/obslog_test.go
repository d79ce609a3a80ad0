package obslog

import (
	"testing"

	"warehousefleet/internal/config"
)

func TestNewValidLevelsAndFormats(t *testing.T) {
	for _, tc := range []struct {
		level, format string
	}{
		{"debug", "json"},
		{"info", "console"},
		{"warn", ""},
		{"error", "json"},
	} {
		log, err := New(config.LogConfig{Level: tc.level, Format: tc.format})
		if err != nil {
			t.Fatalf("New(%q, %q) error = %v", tc.level, tc.format, err)
		}
		defer log.Sync()
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "not-a-level", Format: "json"}); err == nil {
		t.Fatal("New() error = nil, want error for bad level")
	}
}

func TestNewRejectsBadFormat(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("New() error = nil, want error for bad format")
	}
}
