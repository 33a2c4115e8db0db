package client

import "github.com/zucenko/mazerun/protocol"

// PlayerState keeps the last two positions of one player so the renderer
// can restore the cell the player just left.
type PlayerState struct {
	states       [2]protocol.Player
	curr         int
	updated      bool
	changedLevel bool
}

func (ps *PlayerState) Curr() protocol.Player {
	return ps.states[ps.curr]
}

func (ps *PlayerState) Prev() protocol.Player {
	return ps.states[(ps.curr+1)%2]
}

func (ps *PlayerState) Update(p protocol.Player) {
	ps.curr = (ps.curr + 1) % 2
	ps.states[ps.curr] = p
	ps.updated = true
	ps.changedLevel = ps.states[0].Z != ps.states[1].Z
}

func (ps *PlayerState) CheckAndClearUpdated() bool {
	u := ps.updated
	ps.updated = false
	return u
}

func (ps *PlayerState) CheckAndClearChangedLevel() bool {
	c := ps.changedLevel
	ps.changedLevel = false
	return c
}

// isClear reports whether p is the unoccupied sentinel.
func isClear(p protocol.Player) bool {
	return p.ID == 0
}
