package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/agent"
	"github.com/zucenko/mazerun/model"
	"github.com/zucenko/mazerun/protocol"
	"github.com/zucenko/mazerun/transport"
)

// drainTimeout bounds how long a closing session waits for its queued
// frames to reach the peer.
const drainTimeout = time.Second

func NewGameServer(rng *rand.Rand, agentTick time.Duration) *GameServer {
	if agentTick <= 0 {
		agentTick = agent.DefaultTick
	}
	return &GameServer{
		GameSessions: make([]*GameSession, 0),
		Registry:     NewRegistry(agent.BaseID),
		Upgrader:     &websocket.Upgrader{},
		AgentTick:    agentTick,
		rng:          rng,
	}
}

func (s *GameServer) newRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

// LoadNewMaze builds a maze for c, appends it to the catalog and tells every
// session about the new summary.
func (s *GameServer) LoadNewMaze(c model.Config) (*GameSession, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s.rngMu.Lock()
	m, err := model.Build(c, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	gs := newGameSession(s, len(s.GameSessions), m)
	s.GameSessions = append(s.GameSessions, gs)
	s.mu.Unlock()

	log.WithFields(log.Fields{"game": gs.Index + 1, "maze": c, "goal": m.Goal}).Info("maze created")
	if log.IsLevelEnabled(log.DebugLevel) {
		for z := 0; z < c.Levels; z++ {
			log.WithFields(log.Fields{"game": gs.Index + 1, "level": z}).Debug("\n" + m.LevelText(z))
		}
	}

	s.BroadcastSummary()
	return gs, nil
}

// Game looks up a game by its 1 based selection number.
func (s *GameServer) Game(selection int) (*GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selection < 1 || selection > len(s.GameSessions) {
		return nil, ErrBadSelection
	}
	return s.GameSessions[selection-1], nil
}

func (s *GameServer) Summary() *protocol.GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := &protocol.GameSummary{Configs: make([]protocol.GameConfig, 0, len(s.GameSessions))}
	for _, gs := range s.GameSessions {
		summary.Configs = append(summary.Configs, gs.Maze.Config.Payload())
	}
	return summary
}

func (s *GameServer) Games() []GameInfo {
	s.mu.Lock()
	games := append([]*GameSession(nil), s.GameSessions...)
	s.mu.Unlock()
	infos := make([]GameInfo, 0, len(games))
	for _, gs := range games {
		infos = append(infos, gs.Info())
	}
	return infos
}

func (s *GameServer) BroadcastSummary() {
	frame, err := protocol.Encode(s.Summary())
	if err != nil {
		log.WithError(err).Error("could not encode game summary")
		return
	}
	s.Registry.Each(func(ps *PlayerSession) {
		ps.push(frame)
	})
}

// JoinMaze seats ps in the selected game. Errors are answered by the caller.
func (s *GameServer) JoinMaze(ps *PlayerSession, sel protocol.GameSelect) error {
	gs, err := s.Game(int(sel.Selection))
	if err != nil {
		return err
	}
	if err := gs.Join(ps, int(sel.NumPlayers)); err != nil {
		return err
	}
	ps.currentMaze = int(sel.Selection)
	ps.State = PS_PLAY
	return nil
}

func (s *GameServer) LeaveMaze(ps *PlayerSession) {
	if ps.currentMaze == 0 {
		return
	}
	if gs, err := s.Game(ps.currentMaze); err == nil {
		gs.Leave(ps)
	}
	ps.currentMaze = 0
	if ps.State == PS_PLAY {
		ps.State = PS_NEW
	}
}

func (s *GameServer) MovePlayer(ps *PlayerSession, dir protocol.MoveDir) {
	gs, err := s.Game(ps.currentMaze)
	if err != nil {
		ps.log.WithField("dir", dir).Warn("move outside of a game")
		return
	}
	if _, won := gs.MovePlayer(ps.Id, dir); won {
		gs.Finish()
	}
}

// Serve runs one connection until it fails or the peer goes away.
func (s *GameServer) Serve(conn transport.Conn) {
	ps := &PlayerSession{
		State:  PS_NEW,
		ConnID: uuid.New(),
		Conn:   conn,
		outbox: NewOutbox(),
	}
	s.Registry.Acquire(ps)
	ps.log = log.WithFields(log.Fields{"player": ps.Id, "conn": ps.ConnID})

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		ps.LoopChannelWrite()
	}()

	ps.Send(&protocol.PlayerID{ID: ps.Id})
	if err := s.Registry.Start(ps.Handle); err != nil {
		ps.log.WithError(err).Error("session vanished before start")
	}
	ps.log.WithField("remote", conn.RemoteAddr()).Info("Session established")
	s.BroadcastSummary()

	s.LoopChannelRead(ps)

	s.LeaveMaze(ps)
	ps.outbox.Close()
	select {
	case <-writeDone:
	case <-time.After(drainTimeout):
		ps.log.Warn("peer not draining, dropping queued messages")
	}
	conn.Close()
	<-writeDone
	if err := s.Registry.Release(ps.Handle); err != nil {
		ps.log.WithError(err).Error("could not release session")
	}
	ps.log.WithFields(log.Fields{"in": ps.DebugInMessages, "out": ps.DebugOutMessages}).Info("Session terminated")
}

func (s *GameServer) LoopChannelRead(ps *PlayerSession) {
	for {
		p, err := ps.Conn.ReadMessage()
		if err != nil {
			switch {
			case protocol.IsDecodeError(err):
				ps.State = PS_ERR
				ps.log.WithError(err).Error("cant decode, closing session")
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed),
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				ps.State = PS_OVER
				ps.log.Info("peer closed the connection")
			default:
				ps.State = PS_ERR
				ps.log.WithError(err).Error("err reading message from Conn")
			}
			return
		}
		ps.DebugLastMessage = time.Now()
		ps.DebugInMessages++
		s.processMessage(ps, p)
	}
}

func (s *GameServer) processMessage(ps *PlayerSession, p protocol.Payload) {
	switch m := p.(type) {
	case *protocol.GameConfig:
		if _, err := s.LoadNewMaze(model.ConfigFromPayload(*m)); err != nil {
			ps.log.WithError(err).Warn("maze not created")
		}
	case *protocol.GameSelect:
		s.LeaveMaze(ps)
		if err := s.JoinMaze(ps, *m); err != nil {
			ps.Send(&protocol.SelectResp{Result: protocol.SelectFail})
			ps.log.WithError(err).WithField("selection", m.Selection).Warn("Failed to join maze")
		}
	case *protocol.Move:
		s.MovePlayer(ps, m.Dir)
	case *protocol.Cancel:
		s.LeaveMaze(ps)
	case *protocol.PlayerID, *protocol.GameSummary, *protocol.SelectResp,
		*protocol.Matrix3D, *protocol.Player, *protocol.Winner:
		ps.log.WithField("opcode", p.Opcode()).Warn("Unexpected message received")
	}
}

// LoopChannelWrite drains the outbox to the connection. A failed write
// closes the connection so the read loop ends too.
func (ps *PlayerSession) LoopChannelWrite() {
	err := ps.outbox.Run(ps.Conn, func() { ps.DebugOutMessages++ })
	if err != nil {
		ps.log.WithError(err).Warn("cant write to Conn")
		ps.outbox.Close()
		ps.Conn.Close()
	}
}

// Send enqueues p for this session only.
func (ps *PlayerSession) Send(p protocol.Payload) {
	frame, err := protocol.Encode(p)
	if err != nil {
		ps.log.WithError(err).Error("could not encode message")
		return
	}
	ps.push(frame)
}

func (ps *PlayerSession) push(frame []byte) {
	if !ps.outbox.Push(frame) {
		ps.log.Debug("dropping message for closed session")
	}
}

// ServeTCP accepts stream connections until ctx is done.
func (s *GameServer) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.WithField("addr", ln.Addr()).Info("accepting TCP sessions")
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.Serve(transport.NewStream(c))
	}
}

func (s *GameServer) HandleHttpCall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("HandleHttpCall - Conection received from %s", r.RemoteAddr)
		conn, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("HandleHttpCall websocket upgrade err %v", err)
			return
		}
		s.Serve(transport.NewWebsocket(conn))
	}
}

func (s *GameServer) HandleGames() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Games()); err != nil {
			log.WithError(err).Warn("could not write games")
		}
	}
}

func (s *GameServer) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(HTTP_SUCCESS)
		_, _ = w.Write([]byte("ok"))
	}
}
