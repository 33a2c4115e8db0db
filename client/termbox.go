package client

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
)

// TermboxTerminal prints menus on stdout and hands the screen to termbox
// while a game is shown.
type TermboxTerminal struct {
	mode Mode
	out  io.Writer
	in   *bufio.Reader

	events chan termbox.Event
	done   chan struct{}
	cx, cy int
}

func NewTermboxTerminal() *TermboxTerminal {
	return &TermboxTerminal{
		mode: ModeNormal,
		out:  os.Stdout,
		in:   bufio.NewReader(os.Stdin),
	}
}

func (t *TermboxTerminal) Mode() Mode {
	return t.mode
}

func (t *TermboxTerminal) SetMode(m Mode) error {
	if m == t.mode {
		return nil
	}
	switch m {
	case ModeGame:
		if err := termbox.Init(); err != nil {
			return fmt.Errorf("termbox init: %w", err)
		}
		termbox.SetInputMode(termbox.InputEsc)
		t.events = make(chan termbox.Event, 16)
		t.done = make(chan struct{})
		go t.poll(t.events, t.done)
	case ModeNormal:
		termbox.Interrupt()
		<-t.done
		termbox.Close()
	}
	t.mode = m
	return nil
}

func (t *TermboxTerminal) poll(events chan<- termbox.Event, done chan<- struct{}) {
	defer close(done)
	for {
		ev := termbox.PollEvent()
		if ev.Type == termbox.EventInterrupt || ev.Type == termbox.EventError {
			return
		}
		if ev.Type != termbox.EventKey {
			continue
		}
		select {
		case events <- ev:
		default:
		}
	}
}

func (t *TermboxTerminal) ClearScreen() {
	if t.mode == ModeGame {
		termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
		termbox.Flush()
		t.cx, t.cy = 0, 0
		return
	}
	fmt.Fprint(t.out, "\033[H\033[2J")
}

func (t *TermboxTerminal) SetCursorPos(x, y int) {
	if t.mode == ModeGame {
		t.cx, t.cy = x, y
		termbox.SetCursor(x, y)
		termbox.Flush()
		return
	}
	fmt.Fprintf(t.out, "\033[%d;%dH", y+1, x+1)
}

// Output writes s at the cursor. In game mode a newline returns to column 0
// of the next row.
func (t *TermboxTerminal) Output(s string) {
	if t.mode != ModeGame {
		fmt.Fprint(t.out, s)
		return
	}
	for _, r := range s {
		if r == '\n' {
			t.cx = 0
			t.cy++
			continue
		}
		termbox.SetCell(t.cx, t.cy, r, termbox.ColorDefault, termbox.ColorDefault)
		w := runewidth.RuneWidth(r)
		if w < 1 {
			w = 1
		}
		t.cx += w
	}
	termbox.Flush()
}

func (t *TermboxTerminal) PollKeys() []Key {
	if t.mode != ModeGame {
		return nil
	}
	var keys []Key
	for {
		select {
		case ev := <-t.events:
			if k := keyOf(ev); k != KeyNone {
				keys = append(keys, k)
			}
		default:
			return keys
		}
	}
}

func keyOf(ev termbox.Event) Key {
	switch ev.Key {
	case termbox.KeyEsc:
		return KeyEscape
	case termbox.KeyEnter:
		return KeyEnter
	case termbox.KeyArrowUp:
		return KeyUp
	case termbox.KeyArrowDown:
		return KeyDown
	case termbox.KeyArrowLeft:
		return KeyLeft
	case termbox.KeyArrowRight:
		return KeyRight
	}
	switch ev.Ch {
	case 'a', 'A':
		return KeyA
	case 'z', 'Z':
		return KeyZ
	}
	return KeyNone
}

func (t *TermboxTerminal) ReadLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *TermboxTerminal) Close() error {
	return t.SetMode(ModeNormal)
}
