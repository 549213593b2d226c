package grid

import (
	"testing"

	"github.com/finleyb/corkboard/pkg/board"
)

func TestIndexToPosition(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		index Index
		wantX float64
		wantY float64
	}{
		{
			name:  "origin cell",
			index: Index{Col: 0, Row: 0},
			wantX: 16,
			wantY: 16,
		},
		{
			name:  "cell (2,3)",
			index: Index{Col: 2, Row: 3},
			wantX: 16 + 2*(220+16),
			wantY: 16 + 3*(140+16),
		},
		{
			name:  "far cell",
			index: Index{Col: 10, Row: 10},
			wantX: 16 + 10*236,
			wantY: 16 + 10*156,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := IndexToPosition(tt.index, cfg)
			if p.X != tt.wantX || p.Y != tt.wantY {
				t.Errorf("IndexToPosition(%+v) = (%v,%v), want (%v,%v)", tt.index, p.X, p.Y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestPositionToIndexRoundTrip(t *testing.T) {
	cfg := DefaultConfig()

	// Every non-negative index must survive a round trip through pixels.
	for col := 0; col < 25; col++ {
		for row := 0; row < 25; row++ {
			in := Index{Col: col, Row: row}
			got := PositionToIndex(IndexToPosition(in, cfg), cfg)
			if got != in {
				t.Fatalf("round trip of %+v produced %+v", in, got)
			}
		}
	}
}

func TestPositionToIndexSnapsToNearest(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		pos  board.Position
		want Index
	}{
		{
			name: "exact cell position",
			pos:  board.Position{X: 16, Y: 16},
			want: Index{Col: 0, Row: 0},
		},
		{
			name: "dragged near cell (2,2)",
			pos:  board.Position{X: 450, Y: 300},
			want: Index{Col: 2, Row: 2},
		},
		{
			name: "just under halfway rounds down",
			pos:  board.Position{X: 16 + 117, Y: 16 + 77},
			want: Index{Col: 0, Row: 0},
		},
		{
			name: "just over halfway rounds up",
			pos:  board.Position{X: 16 + 119, Y: 16 + 79},
			want: Index{Col: 1, Row: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionToIndex(tt.pos, cfg)
			if got != tt.want {
				t.Errorf("PositionToIndex(%+v) = %+v, want %+v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestPositionToIndexClampsNegative(t *testing.T) {
	cfg := DefaultConfig()

	got := PositionToIndex(board.Position{X: -500, Y: -500}, cfg)
	if got.Col != 0 || got.Row != 0 {
		t.Errorf("negative position mapped to %+v, want (0,0)", got)
	}
}

func TestSnap(t *testing.T) {
	cfg := DefaultConfig()

	got := Snap(board.Position{X: 450, Y: 300}, cfg)
	want := IndexToPosition(Index{Col: 2, Row: 2}, cfg)
	if got != want {
		t.Errorf("Snap = %+v, want %+v", got, want)
	}

	// Snapping an already-snapped position is a fixed point.
	if again := Snap(got, cfg); again != got {
		t.Errorf("Snap not idempotent: %+v then %+v", got, again)
	}
}

func TestPointInGroup(t *testing.T) {
	cfg := DefaultConfig()
	g := &board.Group{
		ID:       "g1",
		Name:     "Backlog",
		Position: board.Position{X: 100, Y: 100},
		Size:     board.Size{Width: 300, Height: 200},
	}

	tests := []struct {
		name string
		pos  board.Position
		want bool
	}{
		{"inside body", board.Position{X: 200, Y: 250}, true},
		{"inside header band", board.Position{X: 200, Y: 120}, true},
		{"top-left corner inclusive", board.Position{X: 100, Y: 100}, true},
		{"bottom-right corner inclusive", board.Position{X: 400, Y: 100 + 40 + 200}, true},
		{"left of group", board.Position{X: 99, Y: 200}, false},
		{"right of group", board.Position{X: 401, Y: 200}, false},
		{"above group", board.Position{X: 200, Y: 99}, false},
		{"below group", board.Position{X: 200, Y: 341}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInGroup(tt.pos, g, cfg); got != tt.want {
				t.Errorf("PointInGroup(%+v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestDistinctCellsDistinctPositions(t *testing.T) {
	cfg := DefaultConfig()

	seen := make(map[board.Position]Index)
	for col := 0; col < 12; col++ {
		for row := 0; row < 12; row++ {
			i := Index{Col: col, Row: row}
			p := IndexToPosition(i, cfg)
			if prev, ok := seen[p]; ok {
				t.Fatalf("cells %+v and %+v map to the same position %+v", prev, i, p)
			}
			seen[p] = i
		}
	}
}
