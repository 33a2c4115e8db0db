package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zucenko/mazerun/model"
	"github.com/zucenko/mazerun/protocol"
)

type fakeTerminal struct {
	mode   Mode
	lines  []string
	keys   []Key
	screen map[[2]int]rune
	cx, cy int
	text   strings.Builder
}

func newFakeTerminal(lines ...string) *fakeTerminal {
	return &fakeTerminal{lines: lines, screen: map[[2]int]rune{}}
}

func (t *fakeTerminal) SetMode(m Mode) error { t.mode = m; return nil }
func (t *fakeTerminal) Mode() Mode           { return t.mode }
func (t *fakeTerminal) Close() error         { return nil }

func (t *fakeTerminal) ClearScreen() {
	t.screen = map[[2]int]rune{}
	t.cx, t.cy = 0, 0
}

func (t *fakeTerminal) SetCursorPos(x, y int) { t.cx, t.cy = x, y }

func (t *fakeTerminal) Output(s string) {
	t.text.WriteString(s)
	for _, r := range s {
		if r == '\n' {
			t.cx = 0
			t.cy++
			continue
		}
		t.screen[[2]int{t.cx, t.cy}] = r
		t.cx++
	}
}

func (t *fakeTerminal) PollKeys() []Key {
	if len(t.keys) == 0 {
		return nil
	}
	k := t.keys[0]
	t.keys = t.keys[1:]
	return []Key{k}
}

func (t *fakeTerminal) ReadLine() (string, error) {
	if len(t.lines) == 0 {
		return "", io.EOF
	}
	l := t.lines[0]
	t.lines = t.lines[1:]
	return l, nil
}

func (t *fakeTerminal) at(x, y int) rune {
	return t.screen[[2]int{x, y}]
}

type incoming struct {
	p   protocol.Payload
	err error
}

type fakeConn struct {
	mu   sync.Mutex
	sent []protocol.Payload
	in   chan incoming
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan incoming, 16)}
}

func (c *fakeConn) ReadMessage() (protocol.Payload, error) {
	msg, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return msg.p, msg.err
}

func (c *fakeConn) WriteFrame(frame []byte) error {
	p, err := protocol.ReadMessage(bytes.NewReader(frame))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sent = append(c.sent, p)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error       { return nil }
func (c *fakeConn) RemoteAddr() string { return "fake" }

func (c *fakeConn) takeSent() []protocol.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sent
	c.sent = nil
	return out
}

func newTestManager(term *fakeTerminal, conn *fakeConn) *Manager {
	m := NewManager(term, conn)
	m.menuPause = 0
	return m
}

// stairsWorld is 3x3x2 with a stair up in the first seat room and a stair
// down above it. The goal sits in the center of the top level.
func stairsWorld(t *testing.T) *protocol.Matrix3D {
	c := model.Config{Width: 3, Height: 3, Levels: 2}
	rooms := protocol.NewMatrix3D(3, 3, 2, byte(model.AllWalls))
	model.OpenWall(rooms, model.Position{X: 0, Y: 0, Z: 0}, model.DirRight)
	model.OpenWall(rooms, model.Position{X: 0, Y: 0, Z: 0}, model.DirTop)
	model.OpenWall(rooms, model.Position{X: 0, Y: 0, Z: 1}, model.DirRight)
	model.OpenWall(rooms, model.Position{X: 1, Y: 0, Z: 1}, model.DirDown)
	m, err := model.NewMaze(c, rooms)
	require.NoError(t, err)
	return m.World
}

func TestStateMachine(t *testing.T) {
	term := newFakeTerminal()
	m := newTestManager(term, newFakeConn())
	configs := []protocol.GameConfig{{Width: 5, Height: 5, Levels: 2}}

	m.ProcessMessage(&protocol.GameSummary{Configs: configs})
	assert.Equal(t, CS_INIT, m.State())

	m.ProcessMessage(&protocol.PlayerID{ID: 3})
	assert.Equal(t, CS_INPUT, m.State())
	assert.Equal(t, uint32(3), m.playerID)

	m.state = CS_WAIT
	m.ProcessMessage(&protocol.GameSummary{Configs: configs})
	assert.Equal(t, CS_INPUT, m.State())
	assert.Equal(t, configs, m.summary)

	m.state = CS_WAIT_START
	m.ProcessMessage(&protocol.SelectResp{Result: protocol.SelectFail})
	assert.Equal(t, CS_INPUT, m.State())
	assert.Contains(t, term.text.String(), "Cannot enter maze; currently occupied...")

	m.state = CS_WAIT_START
	m.ProcessMessage(&protocol.SelectResp{Result: protocol.SelectWait})
	assert.Equal(t, CS_WAIT_START, m.State())
	assert.Equal(t, ModeGame, term.mode)
	assert.Contains(t, term.text.String(), "Waiting for other player...")

	m.ProcessMessage(stairsWorld(t))
	assert.Equal(t, CS_ACTIVE, m.State())

	m.ProcessMessage(&protocol.Winner{ID: 3})
	assert.Equal(t, CS_GAME_OVER, m.State())
	assert.True(t, m.win)

	// only summaries are accepted after the game ends
	m.ProcessMessage(&protocol.Player{ID: 3, X: 2, Y: 1})
	assert.Equal(t, CS_GAME_OVER, m.State())
	assert.Equal(t, uint32(0), m.players[0].Curr().ID)
}

func TestMenuCreateMaze(t *testing.T) {
	term := newFakeTerminal("x", "1", "2", "5", "5", "2", "maybe", "y")
	conn := newFakeConn()
	m := newTestManager(term, conn)
	m.state = CS_INPUT
	m.playerID = 2

	require.NoError(t, m.processInput())
	assert.Equal(t, CS_WAIT, m.State())
	assert.Equal(t, []protocol.Payload{&protocol.GameConfig{Width: 5, Height: 5, Levels: 2}}, conn.takeSent())
	assert.Contains(t, term.text.String(), "Welcome, Player 2!")
	assert.Contains(t, term.text.String(), "Width=5, Height=5, Levels=2")
}

func TestMenuCreateMazeDeclined(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(newFakeTerminal("1", "3", "3", "1", "n"), conn)
	m.state = CS_INPUT

	require.NoError(t, m.processInput())
	assert.Equal(t, CS_INPUT, m.State())
	assert.Empty(t, conn.takeSent())
}

func TestMenuEnterMaze(t *testing.T) {
	term := newFakeTerminal("3", "0", "2")
	conn := newFakeConn()
	m := newTestManager(term, conn)
	m.state = CS_INPUT
	m.summary = []protocol.GameConfig{{Width: 3, Height: 3, Levels: 1}, {Width: 5, Height: 4, Levels: 2}}

	require.NoError(t, m.processInput())
	assert.Equal(t, CS_WAIT_START, m.State())
	assert.Equal(t, []protocol.Payload{&protocol.GameSelect{Selection: 2, NumPlayers: 2}}, conn.takeSent())
	assert.Contains(t, term.text.String(), "\t2) 5x4x2\n")
	assert.Contains(t, term.text.String(), "\t3) Return to Main Menu\n")

	term.lines = []string{"2", "3"}
	m.state = CS_INPUT
	require.NoError(t, m.processInput())
	assert.Equal(t, CS_INPUT, m.State())
	assert.Empty(t, conn.takeSent())
}

func TestMenuQuitAndEOF(t *testing.T) {
	m := newTestManager(newFakeTerminal("4"), newFakeConn())
	m.state = CS_INPUT
	assert.NoError(t, m.Run(context.Background()))

	m = newTestManager(newFakeTerminal(), newFakeConn())
	m.state = CS_INPUT
	assert.ErrorIs(t, m.Run(context.Background()), io.EOF)
}

func TestRunStopsOnCancel(t *testing.T) {
	m := newTestManager(newFakeTerminal(), newFakeConn())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestWaitStartEscape(t *testing.T) {
	term := newFakeTerminal()
	conn := newFakeConn()
	m := newTestManager(term, conn)
	m.state = CS_WAIT_START
	m.ProcessMessage(&protocol.SelectResp{Result: protocol.SelectWait})

	m.processWaitInput()
	assert.Equal(t, CS_WAIT_START, m.State())

	term.keys = []Key{KeyEscape}
	m.processWaitInput()
	assert.Equal(t, CS_INPUT, m.State())
	assert.Equal(t, ModeNormal, term.mode)
	assert.Equal(t, []protocol.Payload{&protocol.Cancel{}}, conn.takeSent())
}

func TestGameRenderingAndKeys(t *testing.T) {
	term := newFakeTerminal()
	conn := newFakeConn()
	m := newTestManager(term, conn)
	m.playerID = 1
	m.state = CS_WAIT_START

	m.ProcessMessage(stairsWorld(t))
	m.ProcessMessage(&protocol.Player{ID: 1, X: 2, Y: 1, Z: 0})
	m.ProcessMessage(&protocol.Player{ID: 17, X: 10, Y: 5, Z: 0})
	require.Equal(t, CS_ACTIVE, m.State())
	require.Equal(t, ModeGame, term.mode)

	m.processGame()
	assert.Equal(t, '1', term.at(2, 1))
	assert.Equal(t, 'A', term.at(10, 5))
	assert.Equal(t, '╔', term.at(0, 0))
	assert.Contains(t, term.text.String(), "Player 1, GO!")

	// wall, open corridor, wrong stair, stair up
	for _, k := range []Key{KeyLeft, KeyRight, KeyZ, KeyA, KeyUp} {
		term.keys = []Key{k}
		m.processGame()
	}
	assert.Equal(t, []protocol.Payload{
		&protocol.Move{Dir: protocol.MoveRight},
		&protocol.Move{Dir: protocol.MoveAscend},
	}, conn.takeSent())

	m.ProcessMessage(&protocol.Player{ID: 1, X: 4, Y: 1, Z: 0})
	m.processGame()
	assert.Equal(t, '/', term.at(2, 1))
	assert.Equal(t, '1', term.at(4, 1))

	// climbing redraws the new level without the opponent below
	m.ProcessMessage(&protocol.Player{ID: 1, X: 2, Y: 1, Z: 1})
	m.processGame()
	assert.Equal(t, '1', term.at(2, 1))
	assert.Equal(t, ' ', term.at(10, 5))
	assert.Equal(t, 'Ω', term.at(6, 3))

	m.ProcessMessage(&protocol.Winner{ID: 17})
	m.processGame()
	assert.Contains(t, term.text.String(), "You lost.  Press enter to return to menu...")

	term.keys = []Key{KeyRight}
	m.processGame()
	assert.Equal(t, CS_GAME_OVER, m.State())
	term.keys = []Key{KeyEnter}
	m.processGame()
	assert.Equal(t, CS_INPUT, m.State())
	assert.Equal(t, ModeNormal, term.mode)
	assert.Empty(t, conn.takeSent())
}

func TestGameEscapeCancels(t *testing.T) {
	term := newFakeTerminal()
	conn := newFakeConn()
	m := newTestManager(term, conn)
	m.playerID = 2
	m.state = CS_WAIT_START
	m.ProcessMessage(stairsWorld(t))
	m.ProcessMessage(&protocol.Player{ID: 2, X: 2, Y: 1, Z: 0})

	term.keys = []Key{KeyEscape}
	m.processGame()
	assert.Equal(t, CS_INPUT, m.State())
	assert.Equal(t, ModeNormal, term.mode)
	assert.Equal(t, []protocol.Payload{&protocol.Cancel{}}, conn.takeSent())
}

func TestListenDropsUndecodable(t *testing.T) {
	conn := newFakeConn()
	m := newTestManager(newFakeTerminal(), conn)

	conn.in <- incoming{p: &protocol.PlayerID{ID: 4}}
	conn.in <- incoming{err: fmt.Errorf("decoding: %w", protocol.ErrBodyLength)}
	conn.in <- incoming{p: &protocol.GameSummary{Configs: []protocol.GameConfig{{Width: 3, Height: 3, Levels: 1}}}}
	close(conn.in)

	assert.ErrorIs(t, m.Listen(), io.EOF)
	assert.Equal(t, CS_INPUT, m.State())
	assert.Equal(t, uint32(4), m.playerID)
	assert.Len(t, m.summary, 1)
}

func TestPlayerState(t *testing.T) {
	var ps PlayerState
	assert.True(t, isClear(ps.Curr()))

	ps.Update(protocol.Player{ID: 1, X: 2, Y: 1})
	assert.True(t, ps.CheckAndClearUpdated())
	assert.False(t, ps.CheckAndClearUpdated())
	assert.False(t, ps.CheckAndClearChangedLevel())
	assert.True(t, isClear(ps.Prev()))

	ps.Update(protocol.Player{ID: 1, X: 2, Y: 1, Z: 1})
	assert.True(t, ps.CheckAndClearChangedLevel())
	assert.False(t, ps.CheckAndClearChangedLevel())
	assert.Equal(t, uint32(1), ps.Curr().Z)
	assert.Equal(t, uint32(0), ps.Prev().Z)
}
