package model

import (
	"fmt"
	"math/rand"

	"github.com/zucenko/mazerun/protocol"
)

type frontierRoom struct {
	pos Position
	// direction from the room being finalized toward this one; only
	// meaningful for connection candidates
	dir Direction
}

// Build carves a spanning tree over a width x height x levels grid with a
// randomized Prim's walk, renders the World Grid and places the goal. The
// same rng state always yields the same maze.
func Build(c Config, rng *rand.Rand) (*Maze, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	rooms := carve(c, rng)
	return NewMaze(c, rooms)
}

// NewMaze renders the World Grid for an already carved room grid.
func NewMaze(c Config, rooms *protocol.Matrix3D) (*Maze, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	m := &Maze{Config: c, Rooms: rooms}
	m.World = render(c, rooms)
	goal, err := placeGoal(c, m.World)
	if err != nil {
		return nil, err
	}
	m.Goal = goal
	return m, nil
}

func carve(c Config, rng *rand.Rand) *protocol.Matrix3D {
	rooms := protocol.NewMatrix3D(c.Width, c.Height, c.Levels, byte(AllWalls))
	at := func(p Position) Room { return Room(rooms.At(p.X, p.Y, p.Z)) }
	set := func(p Position, r Room) { rooms.Set(p.X, p.Y, p.Z, byte(r)) }

	frontier := []frontierRoom{{pos: Position{c.Width / 2, c.Height / 2, c.Levels / 2}}}
	candidates := make([]frontierRoom, 0, len(Directions))

	for len(frontier) > 0 {
		index := rng.Intn(len(frontier))
		curr := frontier[index].pos
		set(curr, at(curr)|roomExplored)

		candidates = candidates[:0]
		for _, d := range Directions {
			next := curr.Step(d)
			if !rooms.Contains(next.X, next.Y, next.Z) {
				continue
			}
			r := at(next)
			if r&roomExplored != 0 {
				candidates = append(candidates, frontierRoom{pos: next, dir: d})
			} else if r&roomQueued == 0 {
				set(next, r|roomQueued)
				frontier = append(frontier, frontierRoom{pos: next})
			}
		}

		if len(candidates) > 0 {
			adj := candidates[rng.Intn(len(candidates))]
			OpenWall(rooms, curr, adj.dir)
		}

		// order preserving removal keeps the walk reproducible per seed
		frontier = append(frontier[:index], frontier[index+1:]...)
	}

	for i := range rooms.Data {
		rooms.Data[i] &^= byte(roomQueued | roomExplored)
	}
	return rooms
}

// OpenWall clears the wall between room p and its neighbor in direction d
// on both sides.
func OpenWall(rooms *protocol.Matrix3D, p Position, d Direction) {
	n := p.Step(d)
	rooms.Set(p.X, p.Y, p.Z, rooms.At(p.X, p.Y, p.Z)&^byte(d.Wall()))
	rooms.Set(n.X, n.Y, n.Z, rooms.At(n.X, n.Y, n.Z)&^byte(d.Opposite().Wall()))
}

func render(c Config, rooms *protocol.Matrix3D) *protocol.Matrix3D {
	world := protocol.NewMatrix3D(c.Width*4+2, c.Height*2+1, c.Levels, GlyphFloor)

	for z := 0; z < c.Levels; z++ {
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				room := Room(rooms.At(x, y, z))

				if y == 0 || room&WallUp != 0 {
					for i := 1; i <= 3; i++ {
						world.Set(x*4+i, y*2, z, GlyphHorizontal)
					}
				}
				if x == 0 || room&WallLeft != 0 {
					world.Set(x*4, y*2+1, z, GlyphVertical)
				}
				if x == c.Width-1 {
					world.Set((x+1)*4, y*2+1, z, GlyphVertical)
				}
				if y == c.Height-1 {
					for i := 1; i <= 3; i++ {
						world.Set(x*4+i, (y+1)*2, z, GlyphHorizontal)
					}
				}

				down, up := room.Open(DirBottom), room.Open(DirTop)
				switch {
				case up && down:
					world.Set(x*4+2, y*2+1, z, GlyphStairBoth)
				case up:
					world.Set(x*4+2, y*2+1, z, GlyphStairUp)
				case down:
					world.Set(x*4+2, y*2+1, z, GlyphStairDown)
				}
			}
		}
	}

	w, h := int(world.Width), int(world.Height)
	edge := func(x, y, z int) bool {
		return world.Contains(x, y, z) && world.At(x, y, z) != GlyphFloor
	}
	for z := 0; z < c.Levels; z++ {
		for y := 0; y < h; y += 2 {
			for x := 0; x < w; x += 4 {
				left := x > 0 && edge(x-1, y, z)
				right := x < w-1 && edge(x+1, y, z)
				up := y > 0 && edge(x, y-1, z)
				down := y < h-1 && edge(x, y+1, z)
				world.Set(x, y, z, cornerGlyph(left, right, up, down))
			}
		}
		for y := 0; y < h-1; y++ {
			world.Set(w-1, y, z, GlyphRowEnd)
		}
		world.Set(w-1, h-1, z, GlyphLevelEnd)
	}
	return world
}

// placeGoal spirals clockwise from the center room of the top level, arms
// of 1,1,2,2,3,3... rooms, until it finds a room center with plain floor.
func placeGoal(c Config, world *protocol.Matrix3D) (Position, error) {
	pos := WorldPos(Position{c.Width / 2, c.Height / 2, c.Levels - 1})
	dir := DirDown
	steps, left := 0, 0
	maxArm := 2 * (c.Width + c.Height)

	for !world.Contains(pos.X, pos.Y, pos.Z) || world.At(pos.X, pos.Y, pos.Z) != GlyphFloor {
		if left == 0 {
			switch dir {
			case DirDown:
				dir = DirLeft
				steps++
			case DirLeft:
				dir = DirUp
			case DirUp:
				dir = DirRight
				steps++
			case DirRight:
				dir = DirDown
			}
			left = steps
			if steps > maxArm {
				return Position{}, fmt.Errorf("%w: %s", ErrNoGoal, c)
			}
		}
		left--

		switch dir {
		case DirLeft:
			pos.X -= 4
		case DirUp:
			pos.Y -= 2
		case DirRight:
			pos.X += 4
		case DirDown:
			pos.Y += 2
		}
	}
	world.Set(pos.X, pos.Y, pos.Z, GlyphGoal)
	return RoomPos(pos), nil
}
