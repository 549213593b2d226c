// Package grid provides the pure coordinate transforms behind board
// placement: mapping between discrete grid cells and absolute pixel
// positions, and group-containment hit testing. It holds no state; every
// function is deterministic over its inputs. Non-finite inputs are
// undefined behavior and must be guarded by callers.
package grid

import (
	"math"

	"github.com/finleyb/corkboard/pkg/board"
)

// Config parameterizes the board grid. Values are fixed per deployment but
// can be overridden through the configuration file.
type Config struct {
	CellWidth         float64 `yaml:"cellWidth"`         // Width of one grid cell in pixels
	CellHeight        float64 `yaml:"cellHeight"`        // Height of one grid cell in pixels
	Padding           float64 `yaml:"padding"`           // Gap between cells and around the canvas edge
	GroupHeaderHeight float64 `yaml:"groupHeaderHeight"` // Height of a group's header band
}

// DefaultConfig returns the deployment defaults.
func DefaultConfig() Config {
	return Config{
		CellWidth:         220,
		CellHeight:        140,
		Padding:           16,
		GroupHeaderHeight: 40,
	}
}

// Index is a discrete (column, row) grid cell.
type Index struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// IndexToPosition maps a grid index to the pixel position of that cell.
// Exact inverse of PositionToIndex for all non-negative indices.
func IndexToPosition(i Index, cfg Config) board.Position {
	return board.Position{
		X: cfg.Padding + float64(i.Col)*(cfg.CellWidth+cfg.Padding),
		Y: cfg.Padding + float64(i.Row)*(cfg.CellHeight+cfg.Padding),
	}
}

// PositionToIndex snaps an arbitrary pixel position to the nearest grid
// cell. Indices are clamped at zero, never negative.
func PositionToIndex(p board.Position, cfg Config) Index {
	col := int(math.Round((p.X - cfg.Padding) / (cfg.CellWidth + cfg.Padding)))
	row := int(math.Round((p.Y - cfg.Padding) / (cfg.CellHeight + cfg.Padding)))
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	return Index{Col: col, Row: row}
}

// Snap returns the pixel position of the grid cell nearest to p.
func Snap(p board.Position, cfg Config) board.Position {
	return IndexToPosition(PositionToIndex(p, cfg), cfg)
}

// PointInGroup reports whether a point falls inside a group's bounding
// box, inclusive of its edges and of the header band above the body.
func PointInGroup(p board.Position, g *board.Group, cfg Config) bool {
	return p.X >= g.Position.X && p.X <= g.Position.X+g.Size.Width &&
		p.Y >= g.Position.Y && p.Y <= g.Position.Y+cfg.GroupHeaderHeight+g.Size.Height
}
