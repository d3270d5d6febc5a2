package engine

import (
	"errors"
	"testing"

	simerrors "github.com/wippyai/sim-bridge/errors"
	"github.com/wippyai/sim-bridge/signal"
)

func TestCheckAccess(t *testing.T) {
	layout := signal.Layout{
		{ID: 0, Name: "a", Width: 12},
		{ID: 1, Name: "m", Width: 32, Depth: 4},
	}

	tests := []struct {
		name  string
		id    signal.ID
		index uint32
		n     int
		want  error
	}{
		{"plain", 0, 0, 2, nil},
		{"memory word", 1, 3, 4, nil},
		{"unknown id", 2, 0, 2, simerrors.ErrUnknownSignal},
		{"plain with index", 0, 1, 2, simerrors.ErrOutOfBounds},
		{"memory past depth", 1, 4, 4, simerrors.ErrOutOfBounds},
		{"short buffer", 0, 0, 1, simerrors.ErrLengthMismatch},
		{"long buffer", 1, 0, 8, simerrors.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := CheckAccess(layout, tt.id, tt.index, tt.n)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if info.ID != tt.id {
					t.Errorf("info.ID = %d, want %d", info.ID, tt.id)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
