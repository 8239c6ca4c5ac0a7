package displayconfig

import (
	"runtime"
	"testing"
)

func TestRawToNits(t *testing.T) {
	tests := []struct {
		raw  uint32
		want float64
	}{
		{1000, 80},
		{2500, 200},
		{6000, 480},
		{0, 0},
	}
	for _, tt := range tests {
		if got := rawToNits(tt.raw); got != tt.want {
			t.Fatalf("rawToNits(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestUnknownDisplay(t *testing.T) {
	if _, err := New().SDRWhiteLevel(`\\.\NO_SUCH_DISPLAY`); err == nil {
		t.Fatalf("expected error for unknown display on %s", runtime.GOOS)
	}
}
