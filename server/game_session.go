package server

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/agent"
	"github.com/zucenko/mazerun/model"
	"github.com/zucenko/mazerun/protocol"
)

var _ agent.Mover = (*GameSession)(nil)

func newGameSession(s *GameServer, index int, m *model.Maze) *GameSession {
	return &GameSession{
		Index:   index,
		Maze:    m,
		server:  s,
		State:   GS_NEW,
		players: make(map[uint32]*protocol.Player),
	}
}

func playerAt(id uint32, p model.Position) *protocol.Player {
	return &protocol.Player{ID: id, X: uint32(p.X), Y: uint32(p.Y), Z: uint32(p.Z)}
}

// Join seats ps in a game that will start once numPlayers sessions sit at
// it. The first seat is the top left corner, the second the bottom right.
// A one player game seats a navigation agent as the opponent.
func (gs *GameSession) Join(ps *PlayerSession, numPlayers int) error {
	if numPlayers < 1 || numPlayers > MaxPlayers {
		return ErrBadPlayerCount
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.State == GS_PLAY || gs.State == GS_OVER {
		return ErrGameInProgress
	}
	if len(gs.sessions) >= numPlayers {
		return ErrGameFull
	}

	gs.sessions = append(gs.sessions, ps.Handle)
	seat := gs.Maze.FirstSeat()
	if len(gs.sessions) == MaxPlayers {
		seat = gs.Maze.SecondSeat()
	}
	gs.players[ps.Id] = playerAt(ps.Id, seat)
	gs.numPlayers = numPlayers

	if len(gs.sessions) < numPlayers {
		gs.State = GS_WAIT
		ps.Send(&protocol.SelectResp{Result: protocol.SelectWait})
		return nil
	}

	gs.State = GS_PLAY
	var bot *agent.Agent
	if numPlayers == 1 {
		bot = agent.New(gs.Maze, gs, gs.server.newRand())
		p := bot.Player()
		gs.players[bot.ID()] = &p
	}

	gs.broadcast(gs.Maze.World)
	for _, p := range gs.sortedPlayers() {
		gs.broadcast(p)
	}
	log.WithFields(log.Fields{"game": gs.Index + 1, "maze": gs.Maze.Config, "players": numPlayers}).Info("game started")

	if bot != nil {
		gs.startAgent(bot)
	}
	return nil
}

// Leave removes ps from the game. The last one out stops the agent and
// resets the game for reuse.
func (gs *GameSession) Leave(ps *PlayerSession) {
	gs.mu.Lock()
	index := -1
	for i, h := range gs.sessions {
		if h == ps.Handle {
			index = i
			break
		}
	}
	if index < 0 {
		gs.mu.Unlock()
		return
	}
	gs.sessions = append(gs.sessions[:index], gs.sessions[index+1:]...)
	delete(gs.players, ps.Id)
	if len(gs.sessions) > 0 {
		gs.mu.Unlock()
		return
	}
	run := gs.agent
	gs.agent = nil
	gs.mu.Unlock()

	run.stop()

	gs.mu.Lock()
	if len(gs.sessions) == 0 {
		gs.clear()
	}
	gs.mu.Unlock()
}

// MovePlayer validates and commits one step of player id. A rejected move
// changes nothing and sends nothing. An accepted move is broadcast to every
// seated session, followed by the winner when the step reached the goal.
func (gs *GameSession) MovePlayer(id uint32, dir protocol.MoveDir) (accepted, won bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.State != GS_PLAY {
		return false, false
	}
	p, ok := gs.players[id]
	if !ok {
		return false, false
	}
	from := model.Position{X: int(p.X), Y: int(p.Y), Z: int(p.Z)}
	to, won, ok := gs.Maze.CheckMove(from, model.DirectionFromMove(dir))
	if !ok {
		return false, false
	}
	target := playerAt(id, to)
	for other, o := range gs.players {
		if other != id && o.X == target.X && o.Y == target.Y && o.Z == target.Z {
			return false, false
		}
	}

	*p = *target
	gs.broadcast(p)
	if won {
		gs.State = GS_OVER
		gs.broadcast(&protocol.Winner{ID: id})
		log.WithFields(log.Fields{"game": gs.Index + 1, "player": id}).Info("player reached the goal")
	}
	return true, won
}

// Finish tears down a won game: the agent is stopped and joined outside the
// lock, then every seat is cleared.
func (gs *GameSession) Finish() {
	gs.mu.Lock()
	run := gs.agent
	gs.agent = nil
	gs.mu.Unlock()

	run.stop()

	gs.mu.Lock()
	if gs.State == GS_OVER {
		gs.clear()
	}
	gs.mu.Unlock()
}

// Positions returns a copy of the seated players ordered by id.
func (gs *GameSession) Positions() []protocol.Player {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	out := make([]protocol.Player, 0, len(gs.players))
	for _, p := range gs.sortedPlayers() {
		out = append(out, *p)
	}
	return out
}

func (gs *GameSession) Info() GameInfo {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	c := gs.Maze.Config
	return GameInfo{
		Width:      c.Width,
		Height:     c.Height,
		Levels:     c.Levels,
		State:      gs.State.Name(),
		InProgress: gs.State == GS_PLAY || gs.State == GS_OVER,
		Seated:     len(gs.sessions),
	}
}

func (gs *GameSession) startAgent(bot *agent.Agent) {
	ctx, cancel := context.WithCancel(context.Background())
	run := &agentRun{id: bot.ID(), cancel: cancel, done: make(chan struct{})}
	gs.agent = run

	go func() {
		defer close(run.done)
		if bot.Run(ctx, gs.server.AgentTick) {
			gs.agentWon(run)
		}
	}()
}

func (gs *GameSession) agentWon(run *agentRun) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.agent != run {
		return
	}
	gs.agent = nil
	if gs.State == GS_OVER {
		gs.clear()
	}
}

func (r *agentRun) stop() {
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// clear resets the game for reuse. Callers hold mu.
func (gs *GameSession) clear() {
	gs.sessions = nil
	gs.players = make(map[uint32]*protocol.Player)
	gs.numPlayers = 0
	gs.State = GS_NEW
}

// broadcast enqueues p for every seated session. Callers hold mu.
func (gs *GameSession) broadcast(p protocol.Payload) {
	frame, err := protocol.Encode(p)
	if err != nil {
		log.WithError(err).Error("could not encode broadcast")
		return
	}
	for _, h := range gs.sessions {
		ps, err := gs.server.Registry.Get(h)
		if err != nil {
			log.WithField("game", gs.Index+1).Debug("skipping stale session")
			continue
		}
		ps.push(frame)
	}
}

func (gs *GameSession) sortedPlayers() []*protocol.Player {
	ids := make([]uint32, 0, len(gs.players))
	for id := range gs.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*protocol.Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, gs.players[id])
	}
	return out
}
