// Package protocol frames maze game messages as length-prefixed, opcode-tagged
// binary records and encodes/decodes the payload carried by each opcode.
//
// Every multi-byte integer on the wire is big-endian. A frame is
//
//	| body length (4) | opcode (2) | body (body length) |
package protocol

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	LengthSize  = 4
	CodeSize    = 2
	HeaderSize  = LengthSize + CodeSize
	MaxBodySize = 20000
)

var (
	ErrBodyTooLarge  = errors.New("protocol: body exceeds maximum size")
	ErrInvalidOpcode = errors.New("protocol: invalid opcode")
	ErrBodyLength    = errors.New("protocol: body length does not match payload")
	ErrShortHeader   = errors.New("protocol: short header")
)

type Opcode uint16

// Valid opcodes lie strictly between None and Max.
const (
	None Opcode = iota + 100
	IDNotify
	GamesNotify
	CreateReq
	SelectGameReq
	SelectGameResp
	StartNotify
	MoveReq
	CancelReq
	UpdateNotify
	WinnerNotify
	Max
)

func (op Opcode) Valid() bool {
	return op > None && op < Max
}

func (op Opcode) String() string {
	switch op {
	case IDNotify:
		return "ID_NOTIFY"
	case GamesNotify:
		return "GAMES_NOTIFY"
	case CreateReq:
		return "CREATE_REQ"
	case SelectGameReq:
		return "SELECT_GAME_REQ"
	case SelectGameResp:
		return "SELECT_GAME_RESP"
	case StartNotify:
		return "START_NOTIFY"
	case MoveReq:
		return "MOVE_REQ"
	case CancelReq:
		return "CANCEL_REQ"
	case UpdateNotify:
		return "UPDATE_NOTIFY"
	case WinnerNotify:
		return "WINNER_NOTIFY"
	default:
		return fmt.Sprintf("n/a:%d", uint16(op))
	}
}

type Header struct {
	BodyLength uint32
	Opcode     Opcode
}

var (
	_ encoding.BinaryMarshaler   = (*Header)(nil)
	_ encoding.BinaryUnmarshaler = (*Header)(nil)
)

func (h *Header) MarshalBinary() ([]byte, error) {
	if h.BodyLength > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	data := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(data[0:LengthSize], h.BodyLength)
	binary.BigEndian.PutUint16(data[LengthSize:HeaderSize], uint16(h.Opcode))
	return data, nil
}

// UnmarshalBinary rejects bodies over MaxBodySize and opcodes outside the
// valid range. Both are framing errors: the stream cannot be trusted after.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrShortHeader
	}
	h.BodyLength = binary.BigEndian.Uint32(data[0:LengthSize])
	if h.BodyLength > MaxBodySize {
		return fmt.Errorf("%w: %d", ErrBodyTooLarge, h.BodyLength)
	}
	h.Opcode = Opcode(binary.BigEndian.Uint16(data[LengthSize:HeaderSize]))
	if !h.Opcode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOpcode, uint16(h.Opcode))
	}
	return nil
}

func DecodeHeader(data []byte) (Header, error) {
	var h Header
	err := h.UnmarshalBinary(data)
	return h, err
}

// Encode frames p with its opcode. The returned slice is never modified
// afterwards and may be shared between outbound queues.
func Encode(p Payload) ([]byte, error) {
	body, err := p.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("could not marshal %s body: %w", p.Opcode(), err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("%s: %w", p.Opcode(), ErrBodyTooLarge)
	}
	h := Header{BodyLength: uint32(len(body)), Opcode: p.Opcode()}
	head, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(head, body...), nil
}

// DecodePayload builds the empty payload for op and unmarshals body into it.
func DecodePayload(op Opcode, body []byte) (Payload, error) {
	var p Payload
	switch op {
	case IDNotify:
		p = &PlayerID{}
	case GamesNotify:
		p = &GameSummary{}
	case CreateReq:
		p = &GameConfig{}
	case SelectGameReq:
		p = &GameSelect{}
	case SelectGameResp:
		p = &SelectResp{}
	case StartNotify:
		p = &Matrix3D{}
	case MoveReq:
		p = &Move{}
	case CancelReq:
		p = &Cancel{}
	case UpdateNotify:
		p = &Player{}
	case WinnerNotify:
		p = &Winner{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidOpcode, uint16(op))
	}
	if err := p.UnmarshalBinary(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
