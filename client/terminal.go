package client

// Mode switches the terminal between line input for menus and raw key input
// for play.
type Mode int

const (
	ModeNormal Mode = iota
	ModeGame
)

type Key int

const (
	KeyNone Key = iota
	KeyEscape
	KeyEnter
	KeyUp
	KeyLeft
	KeyRight
	KeyDown
	KeyA
	KeyZ
)

// Terminal is everything the client needs from a display. PollKeys never
// blocks; ReadLine is only used in ModeNormal.
type Terminal interface {
	SetMode(m Mode) error
	Mode() Mode
	ClearScreen()
	SetCursorPos(x, y int)
	Output(s string)
	PollKeys() []Key
	ReadLine() (string, error)
	Close() error
}
