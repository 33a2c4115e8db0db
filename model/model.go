package model

import (
	"errors"
	"fmt"

	"github.com/zucenko/mazerun/protocol"
)

const (
	MinWidth  = 3
	MaxWidth  = 19
	MinHeight = 3
	MaxHeight = 11
	MinLevels = 1
	MaxLevels = 10
)

var (
	ErrConfigRange = errors.New("maze configuration out of range")
	ErrNoGoal      = errors.New("no floor cell left for the goal")
)

type Config struct {
	Width, Height, Levels int
}

func (c Config) Validate() error {
	if c.Width < MinWidth || c.Width > MaxWidth {
		return fmt.Errorf("%w: width %d not in %d-%d", ErrConfigRange, c.Width, MinWidth, MaxWidth)
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		return fmt.Errorf("%w: height %d not in %d-%d", ErrConfigRange, c.Height, MinHeight, MaxHeight)
	}
	if c.Levels < MinLevels || c.Levels > MaxLevels {
		return fmt.Errorf("%w: levels %d not in %d-%d", ErrConfigRange, c.Levels, MinLevels, MaxLevels)
	}
	return nil
}

func (c Config) Cells() int {
	return c.Width * c.Height * c.Levels
}

func (c Config) Payload() protocol.GameConfig {
	return protocol.GameConfig{Width: uint32(c.Width), Height: uint32(c.Height), Levels: uint32(c.Levels)}
}

// ConfigFromPayload does not validate. Huge wire values are clipped to a
// bound that still fails Validate.
func ConfigFromPayload(p protocol.GameConfig) Config {
	const limit = 1 << 16
	clip := func(v uint32) int {
		if v > limit {
			return limit
		}
		return int(v)
	}
	return Config{Width: clip(p.Width), Height: clip(p.Height), Levels: clip(p.Levels)}
}

func (c Config) String() string {
	return fmt.Sprintf("%dx%dx%d", c.Width, c.Height, c.Levels)
}

type Position struct {
	X, Y, Z int
}

func (p Position) Step(d Direction) Position {
	dx, dy, dz := d.Delta()
	return Position{p.X + dx, p.Y + dy, p.Z + dz}
}

func (p Position) Distance(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y) + abs(p.Z-o.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Maze is the immutable output of Build: room walls, the World Grid derived
// from them, and the goal in room coordinates.
type Maze struct {
	Config Config
	Rooms  *protocol.Matrix3D
	World  *protocol.Matrix3D
	Goal   Position
}

func (m *Maze) Room(p Position) Room {
	return Room(m.Rooms.At(p.X, p.Y, p.Z))
}

func (m *Maze) Glyph(p Position) byte {
	return m.World.At(p.X, p.Y, p.Z)
}

// WorldPos is the World Grid cell at the center of room p.
func WorldPos(p Position) Position {
	return Position{p.X*4 + 2, p.Y*2 + 1, p.Z}
}

// RoomPos is the inverse of WorldPos for room centers.
func RoomPos(w Position) Position {
	return Position{(w.X - 2) / 4, (w.Y - 1) / 2, w.Z}
}

// FirstSeat and SecondSeat are the fixed World Grid starting corners.
func (m *Maze) FirstSeat() Position {
	return Position{2, 1, 0}
}

func (m *Maze) SecondSeat() Position {
	return Position{int(m.World.Width) - 4, int(m.World.Height) - 2, 0}
}

// CheckMove validates a one step move from World Grid cell from, ignoring
// other players. Vertical moves need the matching stairwell glyph under the
// mover; the goal glyph is always enterable.
func (m *Maze) CheckMove(from Position, d Direction) (to Position, won, ok bool) {
	if !m.World.Contains(from.X, from.Y, from.Z) {
		return from, false, false
	}
	here := m.Glyph(from)
	switch d {
	case DirLeft:
		to = Position{from.X - 2, from.Y, from.Z}
	case DirRight:
		to = Position{from.X + 2, from.Y, from.Z}
	case DirUp:
		to = Position{from.X, from.Y - 1, from.Z}
	case DirDown:
		to = Position{from.X, from.Y + 1, from.Z}
	case DirBottom:
		if here != GlyphStairDown && here != GlyphStairBoth {
			return from, false, false
		}
		to = Position{from.X, from.Y, from.Z - 1}
	case DirTop:
		if here != GlyphStairUp && here != GlyphStairBoth {
			return from, false, false
		}
		to = Position{from.X, from.Y, from.Z + 1}
	default:
		return from, false, false
	}
	if !m.World.Contains(to.X, to.Y, to.Z) {
		return from, false, false
	}
	glyph := m.Glyph(to)
	if glyph == GlyphGoal {
		return to, true, true
	}
	if IsWall(glyph) {
		return from, false, false
	}
	return to, false, true
}
