// Package client is the terminal side of the maze game: a state machine fed
// by server messages, a line based menu and the in-game key handling and
// drawing.
package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/model"
	"github.com/zucenko/mazerun/protocol"
	"github.com/zucenko/mazerun/transport"
)

type ClientState int

const (
	CS_INIT ClientState = iota + 100
	CS_INPUT
	CS_WAIT
	CS_WAIT_START
	CS_ACTIVE
	CS_GAME_OVER
)

func (cs ClientState) Name() string {
	switch cs {
	case CS_INIT:
		return "INIT"
	case CS_INPUT:
		return "INPUT"
	case CS_WAIT:
		return "WAIT"
	case CS_WAIT_START:
		return "WAIT_START"
	case CS_ACTIVE:
		return "ACTIVE"
	case CS_GAME_OVER:
		return "GAME_OVER"
	default:
		return fmt.Sprintf("n/a:%d", cs)
	}
}

const (
	loopPause = 10 * time.Millisecond
	menuPause = 250 * time.Millisecond
)

// Manager runs the client. Listen feeds it server messages on one goroutine
// while Run drives the menu and the game on another; mu keeps them apart.
type Manager struct {
	term Terminal
	conn transport.Conn

	mu              sync.Mutex
	state           ClientState
	playerID        uint32
	summary         []protocol.GameConfig
	world           *protocol.Matrix3D
	players         [2]PlayerState // own player, opponent
	redraw          bool
	win             bool
	gameOverDisplay bool
	exiting         bool

	menuPause time.Duration
}

func NewManager(term Terminal, conn transport.Conn) *Manager {
	return &Manager{
		term:      term,
		conn:      conn,
		state:     CS_INIT,
		redraw:    true,
		menuPause: menuPause,
	}
}

func (m *Manager) State() ClientState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Listen reads server messages until the connection fails. Messages whose
// body does not fit their opcode are dropped.
func (m *Manager) Listen() error {
	for {
		p, err := m.conn.ReadMessage()
		if protocol.IsDecodeError(err) {
			log.WithError(err).Warn("dropping undecodable message")
			continue
		}
		if err != nil {
			return err
		}
		m.ProcessMessage(p)
	}
}

func (m *Manager) ProcessMessage(p protocol.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case CS_INIT:
		id, ok := p.(*protocol.PlayerID)
		if !ok {
			m.unexpected(p)
			return
		}
		m.playerID = id.ID
		m.state = CS_INPUT

	case CS_INPUT, CS_WAIT:
		summary, ok := p.(*protocol.GameSummary)
		if !ok {
			m.unexpected(p)
			return
		}
		m.summary = summary.Configs
		m.state = CS_INPUT

	case CS_WAIT_START:
		switch msg := p.(type) {
		case *protocol.GameSummary:
			m.summary = msg.Configs
		case *protocol.SelectResp:
			if msg.Result == protocol.SelectFail {
				m.term.Output("\nCannot enter maze; currently occupied...\n")
				m.state = CS_INPUT
			} else {
				m.term.Output("\nWaiting for other player...\n")
				m.setMode(ModeGame)
			}
		case *protocol.Matrix3D:
			m.world = msg
			m.players = [2]PlayerState{}
			m.redraw = true
			m.win = false
			m.setMode(ModeGame)
			m.state = CS_ACTIVE
		default:
			m.unexpected(p)
		}

	case CS_ACTIVE:
		switch msg := p.(type) {
		case *protocol.GameSummary:
			m.summary = msg.Configs
		case *protocol.Player:
			i := 1
			if msg.ID == m.playerID {
				i = 0
			}
			m.players[i].Update(*msg)
			if m.players[0].CheckAndClearChangedLevel() {
				m.redraw = true
			}
		case *protocol.Winner:
			m.win = msg.ID == m.playerID
			m.gameOverDisplay = true
			m.state = CS_GAME_OVER
		default:
			m.unexpected(p)
		}

	case CS_GAME_OVER:
		summary, ok := p.(*protocol.GameSummary)
		if !ok {
			m.unexpected(p)
			return
		}
		m.summary = summary.Configs

	default:
		m.unexpected(p)
	}
}

func (m *Manager) unexpected(p protocol.Payload) {
	log.WithFields(log.Fields{"state": m.state.Name(), "opcode": p.Opcode()}).Warn("Unexpected message received")
}

// Run drives the menu and the game until the player quits, input ends or
// ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	for {
		m.mu.Lock()
		state, exiting := m.state, m.exiting
		m.mu.Unlock()
		if exiting {
			return nil
		}

		switch state {
		case CS_INPUT:
			if err := m.processInput(); err != nil {
				return err
			}
		case CS_WAIT_START:
			m.processWaitInput()
		case CS_ACTIVE, CS_GAME_OVER:
			m.processGame()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(loopPause):
		}
	}
}

func (m *Manager) processInput() error {
	time.Sleep(m.menuPause)
	m.mu.Lock()
	id := m.playerID
	m.mu.Unlock()

	m.term.ClearScreen()
	m.term.Output(fmt.Sprintf("Welcome, Player %d!\n", id))
	m.term.Output("\nMaze Game Main Menu\n" +
		"\t1) Create maze\n" +
		"\t2) Enter maze (1 player game)\n" +
		"\t3) Enter maze (2 player game)\n" +
		"\t4) Quit\n")

	selection, err := m.readInt("Enter selection (1-4): ", 1, 4)
	if err != nil {
		return err
	}
	switch selection {
	case 1:
		return m.createMaze()
	case 2, 3:
		return m.enterMaze(uint32(selection - 1))
	default:
		m.mu.Lock()
		m.exiting = true
		m.mu.Unlock()
		return nil
	}
}

func (m *Manager) createMaze() error {
	m.term.Output("\nCreate New Maze\n")
	c, ok, err := m.mazeConfiguration()
	if err != nil || !ok {
		return err
	}
	payload := c.Payload()
	return m.transition(CS_WAIT, &payload)
}

func (m *Manager) mazeConfiguration() (model.Config, bool, error) {
	var c model.Config
	var err error
	if c.Width, err = m.readInt(fmt.Sprintf("\tEnter width (%d-%d): ", model.MinWidth, model.MaxWidth), model.MinWidth, model.MaxWidth); err != nil {
		return c, false, err
	}
	if c.Height, err = m.readInt(fmt.Sprintf("\tEnter height (%d-%d): ", model.MinHeight, model.MaxHeight), model.MinHeight, model.MaxHeight); err != nil {
		return c, false, err
	}
	if c.Levels, err = m.readInt(fmt.Sprintf("\tEnter number of levels (%d-%d): ", model.MinLevels, model.MaxLevels), model.MinLevels, model.MaxLevels); err != nil {
		return c, false, err
	}

	m.term.Output(fmt.Sprintf("\nWidth=%d, Height=%d, Levels=%d\n\n", c.Width, c.Height, c.Levels))
	for {
		m.term.Output("Is this configuration OK?\n  [y]es\n  [n]o\nEnter key for selection: ")
		line, err := m.term.ReadLine()
		if err != nil {
			return c, false, err
		}
		switch line {
		case "y", "Y":
			return c, true, nil
		case "n", "N":
			return c, false, nil
		}
	}
}

func (m *Manager) enterMaze(numPlayers uint32) error {
	m.mu.Lock()
	configs := append([]protocol.GameConfig(nil), m.summary...)
	m.mu.Unlock()

	m.term.Output("\nSelect Maze\n")
	for i, c := range configs {
		m.term.Output(fmt.Sprintf("\t%d) %s\n", i+1, c))
	}
	back := len(configs) + 1
	m.term.Output(fmt.Sprintf("\t%d) Return to Main Menu\n", back))

	selection, err := m.readInt(fmt.Sprintf("Enter selection (1-%d): ", back), 1, back)
	if err != nil || selection == back {
		return err
	}
	return m.transition(CS_WAIT_START, &protocol.GameSelect{Selection: uint32(selection), NumPlayers: numPlayers})
}

// transition moves to state before sending p so the reply is handled in
// the state that expects it.
func (m *Manager) transition(state ClientState, p protocol.Payload) error {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	return transport.Send(m.conn, p)
}

func (m *Manager) readInt(prompt string, lo, hi int) (int, error) {
	for {
		m.term.Output(prompt)
		line, err := m.term.ReadLine()
		if err != nil {
			return 0, err
		}
		if v, err := strconv.Atoi(line); err == nil && v >= lo && v <= hi {
			return v, nil
		}
	}
}

func (m *Manager) processWaitInput() {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.term.PollKeys()
	if len(keys) > 0 && keys[0] == KeyEscape {
		m.send(&protocol.Cancel{})
		m.setMode(ModeNormal)
		m.state = CS_INPUT
	}
}

func (m *Manager) processGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.world == nil {
		return
	}

	forceRedraw := false
	if m.redraw {
		m.redraw = false
		forceRedraw = true
		m.term.ClearScreen()
		m.term.SetCursorPos(0, 0)
		m.term.Output(model.LevelText(m.world, int(m.players[0].Curr().Z)))
		m.term.SetCursorPos(0, int(m.world.Height))
		m.term.Output(fmt.Sprintf("Player %d, GO!\n", m.playerID))
	}

	ownZ := m.players[0].Curr().Z
	for i := range m.players {
		ps := &m.players[i]
		updated := ps.CheckAndClearUpdated()
		if !updated && !forceRedraw {
			continue
		}
		if !forceRedraw {
			prev := ps.Prev()
			if !isClear(prev) && (i == 0 || prev.Z == ownZ) {
				m.term.SetCursorPos(int(prev.X), int(prev.Y))
				m.term.Output(string(model.GlyphRune(m.world.At(int(prev.X), int(prev.Y), int(prev.Z)))))
			}
		}
		curr := ps.Curr()
		if !isClear(curr) && (i == 0 || curr.Z == ownZ) {
			m.term.SetCursorPos(int(curr.X), int(curr.Y))
			m.term.Output(string(rune(curr.ID + 48)))
		}
	}
	m.term.SetCursorPos(0, int(m.world.Height))

	if m.gameOverDisplay {
		m.gameOverDisplay = false
		if m.win {
			m.term.Output("You win!  Press enter to return to menu...\n")
		} else {
			m.term.Output("You lost.  Press enter to return to menu...\n")
		}
	}

	keys := m.term.PollKeys()
	if len(keys) == 0 {
		return
	}
	switch m.state {
	case CS_ACTIVE:
		dir, quit := m.keyMove(keys[0])
		if quit {
			m.send(&protocol.Cancel{})
			m.setMode(ModeNormal)
			m.state = CS_INPUT
		} else if dir != protocol.MoveNone {
			m.send(&protocol.Move{Dir: dir})
		}
	case CS_GAME_OVER:
		if keys[0] == KeyEnter {
			m.setMode(ModeNormal)
			m.state = CS_INPUT
		}
	}
}

// keyMove maps a key to a move the local World Grid allows. The server
// validates again.
func (m *Manager) keyMove(k Key) (protocol.MoveDir, bool) {
	cur := m.players[0].Curr()
	x, y, z := int(cur.X), int(cur.Y), int(cur.Z)
	here := m.world.At(x, y, z)
	open := func(x, y int) bool {
		if !m.world.Contains(x, y, z) {
			return false
		}
		g := m.world.At(x, y, z)
		return !model.IsWall(g) || g == model.GlyphGoal
	}

	switch k {
	case KeyEscape:
		return protocol.MoveNone, true
	case KeyA:
		if here == model.GlyphStairUp || here == model.GlyphStairBoth {
			return protocol.MoveAscend, false
		}
	case KeyZ:
		if here == model.GlyphStairDown || here == model.GlyphStairBoth {
			return protocol.MoveDescend, false
		}
	case KeyUp:
		if open(x, y-1) {
			return protocol.MoveUp, false
		}
	case KeyDown:
		if open(x, y+1) {
			return protocol.MoveDown, false
		}
	case KeyLeft:
		if open(x-2, y) {
			return protocol.MoveLeft, false
		}
	case KeyRight:
		if open(x+2, y) {
			return protocol.MoveRight, false
		}
	}
	return protocol.MoveNone, false
}

// send writes p to the server. Callers hold mu; a failed write ends Listen
// which stops the client.
func (m *Manager) send(p protocol.Payload) {
	if err := transport.Send(m.conn, p); err != nil {
		log.WithError(err).WithField("opcode", p.Opcode()).Error("could not send")
	}
}

// setMode switches the terminal. Callers hold mu.
func (m *Manager) setMode(mode Mode) {
	if err := m.term.SetMode(mode); err != nil {
		log.WithError(err).Error("terminal mode switch failed")
		m.exiting = true
	}
}
