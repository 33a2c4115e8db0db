package model

import (
	"fmt"

	"github.com/zucenko/mazerun/protocol"
)

type Direction uint8

const (
	DirNone Direction = iota
	DirLeft
	DirRight
	DirUp
	DirDown
	DirBottom
	DirTop
)

// Directions is the fixed scan order used everywhere a direction is searched.
var Directions = [...]Direction{DirLeft, DirRight, DirUp, DirDown, DirBottom, DirTop}

func (d Direction) Opposite() Direction {
	switch d {
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirBottom:
		return DirTop
	case DirTop:
		return DirBottom
	default:
		return DirNone
	}
}

func (d Direction) Delta() (dx, dy, dz int) {
	switch d {
	case DirLeft:
		return -1, 0, 0
	case DirRight:
		return 1, 0, 0
	case DirUp:
		return 0, -1, 0
	case DirDown:
		return 0, 1, 0
	case DirBottom:
		return 0, 0, -1
	case DirTop:
		return 0, 0, 1
	default:
		return 0, 0, 0
	}
}

func (d Direction) Vertical() bool {
	return d == DirBottom || d == DirTop
}

// Wall is the room bit closing direction d.
func (d Direction) Wall() Room {
	switch d {
	case DirLeft:
		return WallLeft
	case DirRight:
		return WallRight
	case DirUp:
		return WallUp
	case DirDown:
		return WallDown
	case DirBottom:
		return WallBottom
	case DirTop:
		return WallTop
	default:
		return 0
	}
}

func (d Direction) Move() protocol.MoveDir {
	switch d {
	case DirLeft:
		return protocol.MoveLeft
	case DirRight:
		return protocol.MoveRight
	case DirUp:
		return protocol.MoveUp
	case DirDown:
		return protocol.MoveDown
	case DirBottom:
		return protocol.MoveDescend
	case DirTop:
		return protocol.MoveAscend
	default:
		return protocol.MoveNone
	}
}

func DirectionFromMove(m protocol.MoveDir) Direction {
	switch m {
	case protocol.MoveLeft:
		return DirLeft
	case protocol.MoveRight:
		return DirRight
	case protocol.MoveUp:
		return DirUp
	case protocol.MoveDown:
		return DirDown
	case protocol.MoveDescend:
		return DirBottom
	case protocol.MoveAscend:
		return DirTop
	default:
		return DirNone
	}
}

func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirBottom:
		return "bottom"
	case DirTop:
		return "top"
	default:
		return fmt.Sprintf("n/a:%d", uint8(d))
	}
}

// Room is the wall bitmask of one maze cell. A set bit means walled off.
type Room uint8

const (
	WallLeft Room = 1 << iota
	WallRight
	WallUp
	WallDown
	WallBottom
	WallTop

	// generation only; cleared before a Maze is returned
	roomQueued
	roomExplored
)

const AllWalls = WallLeft | WallRight | WallUp | WallDown | WallBottom | WallTop

func (r Room) Open(d Direction) bool {
	w := d.Wall()
	return w != 0 && r&w == 0
}

func (r Room) CountOpen() int {
	n := 0
	for _, d := range Directions {
		if r.Open(d) {
			n++
		}
	}
	return n
}

func (r Room) HasStairwell() bool {
	return r.Open(DirBottom) || r.Open(DirTop)
}

// NextOpen is the first open direction in scan order other than exclude,
// or DirNone. Following a corridor is NextOpen(heading.Opposite()).
func (r Room) NextOpen(exclude Direction) Direction {
	for _, d := range Directions {
		if d != exclude && r.Open(d) {
			return d
		}
	}
	return DirNone
}
