package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/model"
	"github.com/zucenko/mazerun/protocol"
	"github.com/zucenko/mazerun/transport"
)

// MaxPlayers is the seat count of one game.
const MaxPlayers = 2

// GameServer is the catalog of games plus the registry of connected
// sessions. Games are never removed; a finished game is cleared and reused.
type GameServer struct {
	mu           sync.Mutex
	GameSessions []*GameSession

	Registry  *Registry
	Upgrader  *websocket.Upgrader
	AgentTick time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

type GameSessionState int

const (
	GS_NEW GameSessionState = iota
	GS_WAIT
	GS_PLAY
	GS_OVER
)

// GameSession is one maze and its live play. mu guards every field below it
// and is the only lock a move takes: validate, commit and enqueue of the
// resulting broadcasts happen under it, never a network write.
type GameSession struct {
	Index int
	Maze  *model.Maze

	server *GameServer

	mu         sync.Mutex
	State      GameSessionState
	sessions   []Handle
	players    map[uint32]*protocol.Player
	numPlayers int
	agent      *agentRun
}

// agentRun is the background navigation agent of a one player game.
type agentRun struct {
	id     uint32
	cancel context.CancelFunc
	done   chan struct{}
}

type PlayerSessionState int

const (
	PS_NEW PlayerSessionState = iota + 1
	PS_PLAY
	PS_OVER
	PS_ERR
)

// PlayerSession is one connection. Everything but the outbox is owned by
// the session's read loop.
type PlayerSession struct {
	State  PlayerSessionState
	Id     uint32
	Handle Handle
	ConnID uuid.UUID
	Conn   transport.Conn

	outbox *Outbox
	// currentMaze is the 1 based index of the joined game, 0 for none
	currentMaze int
	log         *log.Entry

	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
}
