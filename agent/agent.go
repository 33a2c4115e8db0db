// Package agent plays a maze without a network connection. It builds a graph
// of branch points lazily as it reaches them and picks where to go next with
// a weighted random policy biased toward the goal and away from branches it
// has already tried.
package agent

import (
	"context"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/model"
	"github.com/zucenko/mazerun/protocol"
)

const (
	// BaseID is the player id of the first agent; drawn as id+48 it is 'A'.
	BaseID uint32 = 'A' - 48

	DefaultTick        = 100 * time.Millisecond
	DefaultDelayTicks  = 6
	CorridorDelayTicks = 3
)

// Mover is the game the agent is seated in. MovePlayer validates and commits
// one step exactly as it would for a human player.
type Mover interface {
	MovePlayer(id uint32, dir protocol.MoveDir) (accepted, won bool)
}

type Agent struct {
	id    uint32
	maze  *model.Maze
	mover Mover
	rng   *rand.Rand

	start   model.Position // World Grid
	mazePos model.Position
	delay   int

	root, prev, target *node
	lastDir            model.Direction

	// a lateral step between room centers takes two moves; halfway is set
	// while the agent stands in the doorway
	halfway bool
	// revert marks a doorway retreat that must not advance mazePos
	revert bool
}

func New(maze *model.Maze, mover Mover, rng *rand.Rand) *Agent {
	c := maze.Config
	a := &Agent{
		id:      BaseID,
		maze:    maze,
		mover:   mover,
		rng:     rng,
		start:   maze.SecondSeat(),
		mazePos: model.Position{X: c.Width - 1, Y: c.Height - 1, Z: 0},
		delay:   DefaultDelayTicks,
	}
	a.root = newNode(a.mazePos, maze.Goal)
	a.target = a.root
	return a
}

func (a *Agent) ID() uint32 {
	return a.id
}

// Player is the agent's seat before its first move.
func (a *Agent) Player() protocol.Player {
	return protocol.Player{ID: a.id, X: uint32(a.start.X), Y: uint32(a.start.Y), Z: uint32(a.start.Z)}
}

// Run ticks until the agent wins or ctx is cancelled. Cancellation is
// observed before and after every sleep.
func (a *Agent) Run(ctx context.Context, tick time.Duration) bool {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return false
		}
		if a.Tick() {
			log.WithField("agent", a.id).Info("agent reached the goal")
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// Tick counts down the move delay and acts when it expires.
func (a *Agent) Tick() bool {
	a.delay--
	if a.delay > 0 {
		return false
	}
	a.delay = DefaultDelayTicks
	return a.Step()
}

// Step decides and submits one move. It reports whether the move won.
func (a *Agent) Step() bool {
	room := a.maze.Room(a.mazePos)

	switch {
	case !a.halfway && a.mazePos == a.target.pos:
		if !a.target.explored {
			a.explore(a.target)
		}
		index := a.choose(a.target)
		if index < 0 {
			return false
		}
		a.target.checkDeadEnd()
		a.target.tries[index]++
		a.prev, a.target = a.target, a.target.adj[index]
		a.lastDir = a.prev.dirs[index]
		log.WithFields(log.Fields{"agent": a.id, "from": a.prev.pos, "to": a.target.pos, "dir": a.lastDir}).Debug("agent chose branch")
	case !a.halfway:
		back := a.lastDir.Opposite()
		if next := room.NextOpen(back); next != model.DirNone {
			a.lastDir = next
		} else {
			a.lastDir = back
		}
	}

	accepted, won := a.mover.MovePlayer(a.id, a.lastDir.Move())
	if !accepted {
		a.lastDir = a.lastDir.Opposite()
		a.target, a.prev = a.prev, a.target
		if a.halfway {
			a.revert = true
		}
		return false
	}

	if !a.lastDir.Vertical() {
		a.halfway = !a.halfway
	}
	if !a.halfway && !a.revert {
		a.mazePos = a.mazePos.Step(a.lastDir)
	}
	a.revert = false

	if a.mazePos != a.target.pos {
		a.delay = CorridorDelayTicks
	}
	return won
}

// choose draws a neighbor index of n. When every neighbor is a dead end the
// draw falls back to a uniform pick so the agent never stalls.
func (a *Agent) choose(n *node) int {
	if len(n.adj) == 0 {
		return -1
	}
	w := n.weights(a.prev)
	total := 0
	for _, v := range w {
		total += v
	}
	if total == 0 {
		return a.rng.Intn(len(n.adj))
	}
	return pick(w, a.rng.Intn(total))
}

// explore walks every open corridor out of n except the one the agent
// arrived through, and links the branch point at its far end. Corridors
// ending in a dead end are not linked. The arrival side always links back to
// the previous node.
func (a *Agent) explore(n *node) {
	n.explored = true
	room := a.maze.Room(n.pos)
	from := a.lastDir.Opposite()

	for _, d := range model.Directions {
		if d == from && a.prev != nil {
			n.link(a.prev, d)
			continue
		}
		if !room.Open(d) {
			continue
		}
		if end, ok := a.walk(n.pos, d); ok {
			n.link(newNode(end, a.maze.Goal), d)
		}
	}
}

// walk follows a corridor from pos heading d until it reaches the goal, a
// branch point or a dead end.
func (a *Agent) walk(pos model.Position, d model.Direction) (model.Position, bool) {
	for {
		pos = pos.Step(d)
		if pos == a.maze.Goal {
			return pos, true
		}
		room := a.maze.Room(pos)
		open := room.CountOpen()
		if open == 1 {
			return pos, false
		}
		if open > 2 || room.HasStairwell() {
			return pos, true
		}
		d = room.NextOpen(d.Opposite())
	}
}
