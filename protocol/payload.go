package protocol

import (
	"encoding"
	"encoding/binary"
	"fmt"
)

// Payload is the closed set of message bodies. Each opcode maps to exactly
// one implementation; the unexported method keeps the set closed so a type
// switch over the cases below is exhaustive.
type Payload interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Opcode() Opcode
	payload()
}

var (
	_ Payload = (*PlayerID)(nil)
	_ Payload = (*GameSummary)(nil)
	_ Payload = (*GameConfig)(nil)
	_ Payload = (*GameSelect)(nil)
	_ Payload = (*SelectResp)(nil)
	_ Payload = (*Matrix3D)(nil)
	_ Payload = (*Move)(nil)
	_ Payload = (*Cancel)(nil)
	_ Payload = (*Player)(nil)
	_ Payload = (*Winner)(nil)
)

const (
	singleSize = 4
	configSize = 12
	selectSize = 8
	playerSize = 16
)

func marshalSingle(v uint32) []byte {
	data := make([]byte, singleSize)
	binary.BigEndian.PutUint32(data, v)
	return data
}

func unmarshalSingle(data []byte) (uint32, error) {
	if len(data) != singleSize {
		return 0, fmt.Errorf("%w: got %d want %d", ErrBodyLength, len(data), singleSize)
	}
	return binary.BigEndian.Uint32(data), nil
}

// PlayerID tells a freshly connected session its id.
type PlayerID struct {
	ID uint32
}

func (*PlayerID) Opcode() Opcode { return IDNotify }
func (*PlayerID) payload()       {}

func (p *PlayerID) MarshalBinary() ([]byte, error) { return marshalSingle(p.ID), nil }

func (p *PlayerID) UnmarshalBinary(data []byte) (err error) {
	p.ID, err = unmarshalSingle(data)
	return
}

// GameConfig is the size of one maze, also sent as a create request.
type GameConfig struct {
	Width, Height, Levels uint32
}

func (*GameConfig) Opcode() Opcode { return CreateReq }
func (*GameConfig) payload()       {}

func (c *GameConfig) MarshalBinary() ([]byte, error) {
	data := make([]byte, configSize)
	c.put(data)
	return data, nil
}

func (c *GameConfig) UnmarshalBinary(data []byte) error {
	if len(data) != configSize {
		return fmt.Errorf("%w: got %d want %d", ErrBodyLength, len(data), configSize)
	}
	c.get(data)
	return nil
}

func (c *GameConfig) put(data []byte) {
	binary.BigEndian.PutUint32(data[0:4], c.Width)
	binary.BigEndian.PutUint32(data[4:8], c.Height)
	binary.BigEndian.PutUint32(data[8:12], c.Levels)
}

func (c *GameConfig) get(data []byte) {
	c.Width = binary.BigEndian.Uint32(data[0:4])
	c.Height = binary.BigEndian.Uint32(data[4:8])
	c.Levels = binary.BigEndian.Uint32(data[8:12])
}

func (c GameConfig) String() string {
	return fmt.Sprintf("%dx%dx%d", c.Width, c.Height, c.Levels)
}

// GameSummary lists the configuration of every maze in the catalog.
type GameSummary struct {
	Configs []GameConfig
}

func (*GameSummary) Opcode() Opcode { return GamesNotify }
func (*GameSummary) payload()       {}

func (s *GameSummary) MarshalBinary() ([]byte, error) {
	data := make([]byte, len(s.Configs)*configSize)
	for i := range s.Configs {
		s.Configs[i].put(data[i*configSize:])
	}
	return data, nil
}

func (s *GameSummary) UnmarshalBinary(data []byte) error {
	if len(data)%configSize != 0 {
		return fmt.Errorf("%w: %d is not a multiple of %d", ErrBodyLength, len(data), configSize)
	}
	s.Configs = make([]GameConfig, len(data)/configSize)
	for i := range s.Configs {
		s.Configs[i].get(data[i*configSize:])
	}
	return nil
}

// GameSelect asks to join maze Selection (1-based) as one of NumPlayers.
type GameSelect struct {
	Selection  uint32
	NumPlayers uint32
}

func (*GameSelect) Opcode() Opcode { return SelectGameReq }
func (*GameSelect) payload()       {}

func (s *GameSelect) MarshalBinary() ([]byte, error) {
	data := make([]byte, selectSize)
	binary.BigEndian.PutUint32(data[0:4], s.Selection)
	binary.BigEndian.PutUint32(data[4:8], s.NumPlayers)
	return data, nil
}

func (s *GameSelect) UnmarshalBinary(data []byte) error {
	if len(data) != selectSize {
		return fmt.Errorf("%w: got %d want %d", ErrBodyLength, len(data), selectSize)
	}
	s.Selection = binary.BigEndian.Uint32(data[0:4])
	s.NumPlayers = binary.BigEndian.Uint32(data[4:8])
	return nil
}

type SelectResult uint32

const (
	SelectNone SelectResult = iota
	SelectWait
	SelectFail
)

func (r SelectResult) String() string {
	switch r {
	case SelectNone:
		return "NONE"
	case SelectWait:
		return "WAIT"
	case SelectFail:
		return "FAIL"
	default:
		return fmt.Sprintf("n/a:%d", uint32(r))
	}
}

type SelectResp struct {
	Result SelectResult
}

func (*SelectResp) Opcode() Opcode { return SelectGameResp }
func (*SelectResp) payload()       {}

func (r *SelectResp) MarshalBinary() ([]byte, error) { return marshalSingle(uint32(r.Result)), nil }

func (r *SelectResp) UnmarshalBinary(data []byte) error {
	v, err := unmarshalSingle(data)
	r.Result = SelectResult(v)
	return err
}

type MoveDir uint32

const (
	MoveNone MoveDir = iota
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
	MoveDescend
	MoveAscend
)

func (d MoveDir) String() string {
	switch d {
	case MoveNone:
		return "NONE"
	case MoveLeft:
		return "LEFT"
	case MoveRight:
		return "RIGHT"
	case MoveUp:
		return "UP"
	case MoveDown:
		return "DOWN"
	case MoveDescend:
		return "DESCEND"
	case MoveAscend:
		return "ASCEND"
	default:
		return fmt.Sprintf("n/a:%d", uint32(d))
	}
}

type Move struct {
	Dir MoveDir
}

func (*Move) Opcode() Opcode { return MoveReq }
func (*Move) payload()       {}

func (m *Move) MarshalBinary() ([]byte, error) { return marshalSingle(uint32(m.Dir)), nil }

func (m *Move) UnmarshalBinary(data []byte) error {
	v, err := unmarshalSingle(data)
	m.Dir = MoveDir(v)
	return err
}

// Cancel leaves the current game. Its body is empty.
type Cancel struct{}

func (*Cancel) Opcode() Opcode { return CancelReq }
func (*Cancel) payload()       {}

func (*Cancel) MarshalBinary() ([]byte, error) { return []byte{}, nil }

func (*Cancel) UnmarshalBinary(data []byte) error {
	if len(data) != 0 {
		return fmt.Errorf("%w: got %d want 0", ErrBodyLength, len(data))
	}
	return nil
}

// Player is a participant id and its World Grid position.
type Player struct {
	ID      uint32
	X, Y, Z uint32
}

func (*Player) Opcode() Opcode { return UpdateNotify }
func (*Player) payload()       {}

func (p *Player) MarshalBinary() ([]byte, error) {
	data := make([]byte, playerSize)
	binary.BigEndian.PutUint32(data[0:4], p.ID)
	binary.BigEndian.PutUint32(data[4:8], p.X)
	binary.BigEndian.PutUint32(data[8:12], p.Y)
	binary.BigEndian.PutUint32(data[12:16], p.Z)
	return data, nil
}

func (p *Player) UnmarshalBinary(data []byte) error {
	if len(data) != playerSize {
		return fmt.Errorf("%w: got %d want %d", ErrBodyLength, len(data), playerSize)
	}
	p.ID = binary.BigEndian.Uint32(data[0:4])
	p.X = binary.BigEndian.Uint32(data[4:8])
	p.Y = binary.BigEndian.Uint32(data[8:12])
	p.Z = binary.BigEndian.Uint32(data[12:16])
	return nil
}

type Winner struct {
	ID uint32
}

func (*Winner) Opcode() Opcode { return WinnerNotify }
func (*Winner) payload()       {}

func (w *Winner) MarshalBinary() ([]byte, error) { return marshalSingle(w.ID), nil }

func (w *Winner) UnmarshalBinary(data []byte) (err error) {
	w.ID, err = unmarshalSingle(data)
	return
}
