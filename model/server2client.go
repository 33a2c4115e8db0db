package model

import (
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/zucenko/mazerun/protocol"
)

// World Grid glyphs. Values are code page 437 so a terminal can draw them
// directly; anything at or above GlyphWallMin is solid.
const (
	GlyphFloor     byte = ' '
	GlyphStairUp   byte = '/'
	GlyphStairDown byte = '\\'
	GlyphStairBoth byte = 'X'
	GlyphRowEnd    byte = '\n'
	GlyphLevelEnd  byte = 0

	GlyphWallMin byte = 127

	GlyphVertical   byte = 186 // ║
	GlyphHorizontal byte = 205 // ═
	GlyphCross      byte = 206 // ╬
	GlyphTeeUp      byte = 202 // ╩ left, right, up
	GlyphTeeDown    byte = 203 // ╦ left, right, down
	GlyphTeeLeft    byte = 185 // ╣ left, up, down
	GlyphTeeRight   byte = 204 // ╠ right, up, down
	GlyphLeftUp     byte = 188 // ╝
	GlyphLeftDown   byte = 187 // ╗
	GlyphRightUp    byte = 200 // ╚
	GlyphRightDown  byte = 201 // ╔
	GlyphGoal       byte = 234 // Ω
)

func IsWall(glyph byte) bool {
	return glyph >= GlyphWallMin
}

// cornerGlyph picks the box drawing corner joining the given edges.
func cornerGlyph(left, right, up, down bool) byte {
	switch {
	case left && right && up && down:
		return GlyphCross
	case left && right && up:
		return GlyphTeeUp
	case left && right && down:
		return GlyphTeeDown
	case left && up && down:
		return GlyphTeeLeft
	case right && up && down:
		return GlyphTeeRight
	case left && up:
		return GlyphLeftUp
	case left && down:
		return GlyphLeftDown
	case right && up:
		return GlyphRightUp
	case right && down:
		return GlyphRightDown
	case left || right:
		return GlyphHorizontal
	default:
		return GlyphVertical
	}
}

// GlyphRune maps a World Grid byte to the rune it draws as.
func GlyphRune(glyph byte) rune {
	if glyph == GlyphRowEnd {
		return '\n'
	}
	return charmap.CodePage437.DecodeByte(glyph)
}

// LevelText renders level z as UTF-8 text, one line per World Grid row.
func (m *Maze) LevelText(z int) string {
	return LevelText(m.World, z)
}

func LevelText(world *protocol.Matrix3D, z int) string {
	var b strings.Builder
	for _, c := range world.Level(z) {
		if c == GlyphLevelEnd {
			break
		}
		b.WriteRune(GlyphRune(c))
	}
	return b.String()
}
