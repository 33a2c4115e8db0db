package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zucenko/mazerun/protocol"
)

func openPairs(m *Maze) int {
	pairs := 0
	c := m.Config
	for z := 0; z < c.Levels; z++ {
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				r := m.Room(Position{x, y, z})
				// count each shared wall once, from its lower side
				for _, d := range []Direction{DirRight, DirDown, DirTop} {
					if r.Open(d) {
						pairs++
					}
				}
			}
		}
	}
	return pairs
}

func reachable(m *Maze, from Position) int {
	seen := map[Position]bool{from: true}
	queue := []Position{from}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range Directions {
			if !m.Room(p).Open(d) {
				continue
			}
			n := p.Step(d)
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return len(seen)
}

func TestBuildIsSpanningTree(t *testing.T) {
	configs := []Config{
		{3, 3, 1}, {3, 3, 10}, {19, 11, 1}, {19, 11, 10}, {4, 7, 3}, {10, 5, 2},
	}
	for i, c := range configs {
		t.Run(c.String(), func(t *testing.T) {
			m, err := Build(c, rand.New(rand.NewSource(int64(i))))
			require.NoError(t, err)

			assert.Equal(t, c.Cells()-1, openPairs(m))
			assert.Equal(t, c.Cells(), reachable(m, Position{0, 0, 0}))
			assert.Equal(t, c.Cells(), reachable(m, Position{c.Width - 1, c.Height - 1, c.Levels - 1}))
			assert.Equal(t, []uint32{uint32(4*c.Width + 2), uint32(2*c.Height + 1), uint32(c.Levels)},
				[]uint32{m.World.Width, m.World.Height, m.World.Depth})
		})
	}
}

func TestBuildWallsAreSymmetric(t *testing.T) {
	c := Config{7, 5, 4}
	m, err := Build(c, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	for i, b := range m.Rooms.Data {
		assert.Zero(t, Room(b)&(roomQueued|roomExplored), "phase bits left on room %d", i)
	}
	for z := 0; z < c.Levels; z++ {
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				p := Position{x, y, z}
				for _, d := range Directions {
					n := p.Step(d)
					if !m.Rooms.Contains(n.X, n.Y, n.Z) {
						assert.False(t, m.Room(p).Open(d), "%v open to the outside", p)
						continue
					}
					assert.Equal(t, m.Room(p).Open(d), m.Room(n).Open(d.Opposite()))
				}
			}
		}
	}
}

func TestBuildSmallestIsReproducible(t *testing.T) {
	c := Config{3, 3, 1}
	a, err := Build(c, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := Build(c, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, 8, openPairs(a))
	assert.Equal(t, uint32(14), a.World.Width)
	assert.Equal(t, uint32(7), a.World.Height)
	assert.Equal(t, uint32(1), a.World.Depth)
	assert.Equal(t, a.Rooms.Data, b.Rooms.Data)
	assert.Equal(t, a.World.Data, b.World.Data)
	assert.Equal(t, a.Goal, b.Goal)
}

func TestRenderFrameAndStairs(t *testing.T) {
	c := Config{5, 4, 3}
	m, err := Build(c, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	w, h := int(m.World.Width), int(m.World.Height)

	for z := 0; z < c.Levels; z++ {
		assert.Equal(t, GlyphRightDown, m.World.At(0, 0, z))
		assert.Equal(t, GlyphLeftDown, m.World.At(w-2, 0, z))
		assert.Equal(t, GlyphRightUp, m.World.At(0, h-1, z))
		assert.Equal(t, GlyphLeftUp, m.World.At(w-2, h-1, z))
		for y := 0; y < h-1; y++ {
			assert.Equal(t, GlyphRowEnd, m.World.At(w-1, y, z))
		}
		assert.Equal(t, GlyphLevelEnd, m.World.At(w-1, h-1, z))

		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				room := m.Room(Position{x, y, z})
				center := WorldPos(Position{x, y, z})
				glyph := m.Glyph(center)
				if glyph == GlyphGoal {
					continue
				}
				switch {
				case room.Open(DirTop) && room.Open(DirBottom):
					assert.Equal(t, GlyphStairBoth, glyph)
				case room.Open(DirTop):
					assert.Equal(t, GlyphStairUp, glyph)
				case room.Open(DirBottom):
					assert.Equal(t, GlyphStairDown, glyph)
				default:
					assert.Equal(t, GlyphFloor, glyph)
				}
				if x > 0 {
					door := m.World.At(x*4, y*2+1, z)
					assert.Equal(t, room.Open(DirLeft), door == GlyphFloor)
				}
			}
		}
	}
}

func TestGoalPlacement(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		c := Config{9, 7, 3}
		m, err := Build(c, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		assert.Equal(t, c.Levels-1, m.Goal.Z)
		assert.Equal(t, GlyphGoal, m.Glyph(WorldPos(m.Goal)))
		assert.False(t, m.Room(m.Goal).HasStairwell(), "goal replaced a stairwell")

		count := 0
		for _, b := range m.World.Data {
			if b == GlyphGoal {
				count++
			}
		}
		assert.Equal(t, 1, count)
	}
}

func TestGoalSpiralSkipsStairwells(t *testing.T) {
	c := Config{3, 3, 2}
	rooms := protocol.NewMatrix3D(3, 3, 2, byte(AllWalls))
	// stairwell in the center of the top level; the first arm goes left
	OpenWall(rooms, Position{1, 1, 0}, DirTop)

	m, err := NewMaze(c, rooms)
	require.NoError(t, err)
	assert.Equal(t, GlyphStairDown, m.Glyph(WorldPos(Position{1, 1, 1})))
	assert.Equal(t, Position{0, 1, 1}, m.Goal)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{3, 3, 1}.Validate())
	assert.NoError(t, Config{19, 11, 10}.Validate())
	for _, c := range []Config{{2, 3, 1}, {20, 3, 1}, {3, 2, 1}, {3, 12, 1}, {3, 3, 0}, {3, 3, 11}} {
		assert.ErrorIs(t, c.Validate(), ErrConfigRange, c.String())
	}
	_, err := Build(Config{0, 0, 0}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrConfigRange)

	huge := ConfigFromPayload(protocol.GameConfig{Width: 1 << 31, Height: 3, Levels: 1})
	assert.ErrorIs(t, huge.Validate(), ErrConfigRange)
}

func TestNextOpen(t *testing.T) {
	r := AllWalls &^ (WallLeft | WallDown | WallTop)
	assert.Equal(t, 3, r.CountOpen())
	assert.True(t, r.HasStairwell())
	assert.Equal(t, DirLeft, r.NextOpen(DirNone))
	assert.Equal(t, DirDown, r.NextOpen(DirLeft))
	assert.Equal(t, DirLeft, r.NextOpen(DirDown))
	assert.Equal(t, DirNone, AllWalls.NextOpen(DirNone))

	corridor := AllWalls &^ (WallRight | WallUp)
	// entered moving down, so the way back is up
	assert.Equal(t, DirRight, corridor.NextOpen(DirDown.Opposite()))
}

func TestCheckMove(t *testing.T) {
	c := Config{3, 3, 2}
	rooms := protocol.NewMatrix3D(3, 3, 2, byte(AllWalls))
	OpenWall(rooms, Position{0, 0, 0}, DirRight)
	OpenWall(rooms, Position{0, 0, 0}, DirTop)
	m, err := NewMaze(c, rooms)
	require.NoError(t, err)

	start := m.FirstSeat()
	to, won, ok := m.CheckMove(start, DirRight)
	assert.True(t, ok)
	assert.False(t, won)
	assert.Equal(t, Position{4, 1, 0}, to)

	_, _, ok = m.CheckMove(start, DirLeft)
	assert.False(t, ok, "outer wall")
	_, _, ok = m.CheckMove(start, DirDown)
	assert.False(t, ok, "closed wall")
	_, _, ok = m.CheckMove(start, DirBottom)
	assert.False(t, ok, "no stairs down")

	to, _, ok = m.CheckMove(start, DirTop)
	assert.True(t, ok)
	assert.Equal(t, Position{2, 1, 1}, to)

	_, _, ok = m.CheckMove(Position{4, 1, 0}, DirTop)
	assert.False(t, ok, "vertical move needs the stairwell under the mover")
	_, _, ok = m.CheckMove(start, DirNone)
	assert.False(t, ok)
}
