package agent

import "github.com/zucenko/mazerun/model"

// node is a branch point of the agent's private graph: a room with more
// than two openings, a stairwell, the goal, or the starting room.
type node struct {
	pos      model.Position
	distance int // manhattan rooms to the goal, fixed at creation

	adj   []*node
	dirs  []model.Direction // first corridor step toward adj[i]
	tries []int

	explored bool
	deadEnd  bool
}

func newNode(pos, goal model.Position) *node {
	return &node{pos: pos, distance: pos.Distance(goal)}
}

func (n *node) link(to *node, d model.Direction) {
	n.adj = append(n.adj, to)
	n.dirs = append(n.dirs, d)
	n.tries = append(n.tries, 0)
}

// checkDeadEnd flags n once fewer than two of its neighbors can still lead
// anywhere new.
func (n *node) checkDeadEnd() bool {
	alive := 0
	for _, a := range n.adj {
		if !a.deadEnd {
			alive++
		}
	}
	if alive < 2 {
		n.deadEnd = true
	}
	return n.deadEnd
}

const (
	baseWeight     = 20
	distanceWeight = 40
	tryPenalty     = 10
	reverseDivisor = 4
)

// weights scores every neighbor of n. Dead ends score 0. A neighbor at
// distance 0 is the goal and takes every chance. The neighbor equal to prev
// is discouraged; every other candidate scores at least 1.
func (n *node) weights(prev *node) []int {
	w := make([]int, len(n.adj))
	maxDist := 0
	minTries := -1
	rev := -1
	for i, a := range n.adj {
		if a.deadEnd {
			continue
		}
		if a.distance == 0 {
			for j := range w {
				w[j] = 0
			}
			w[i] = 1
			return w
		}
		w[i] = 1
		if a.distance > maxDist {
			maxDist = a.distance
		}
		if prev != nil && a.pos == prev.pos {
			rev = i
		}
		if minTries < 0 || n.tries[i] < minTries {
			minTries = n.tries[i]
		}
	}

	for i, a := range n.adj {
		if w[i] == 0 {
			continue
		}
		v := baseWeight + (maxDist-a.distance)*distanceWeight - (n.tries[i]-minTries)*tryPenalty
		if i == rev {
			v /= reverseDivisor
		}
		if v < 1 {
			v = 1
		}
		w[i] = v
	}
	return w
}

// pick maps a draw in [0, sum(w)) onto the neighbor whose cumulative bucket
// contains it.
func pick(w []int, draw int) int {
	for i, v := range w {
		if v == 0 {
			continue
		}
		if draw < v {
			return i
		}
		draw -= v
	}
	return -1
}
