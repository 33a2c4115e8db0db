// Package transport moves framed protocol messages over a TCP stream or a
// websocket. Both carry the same bytes; a websocket message holds exactly one
// frame.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zucenko/mazerun/protocol"
)

var ErrTrailingBytes = errors.New("transport: websocket message holds more than one frame")

// Conn delivers complete messages in order and writes pre-encoded frames.
// WriteFrame is safe for concurrent use; ReadMessage is not.
type Conn interface {
	ReadMessage() (protocol.Payload, error)
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}

// Send encodes p and writes it as one frame.
func Send(c Conn, p protocol.Payload) error {
	frame, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	return c.WriteFrame(frame)
}

type Stream struct {
	conn net.Conn
	r    *bufio.Reader
	wmu  sync.Mutex
}

func NewStream(conn net.Conn) *Stream {
	return &Stream{conn: conn, r: bufio.NewReader(conn)}
}

func (s *Stream) ReadMessage() (protocol.Payload, error) {
	return protocol.ReadMessage(s.r)
}

func (s *Stream) WriteFrame(frame []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.conn.Write(frame)
	return err
}

func (s *Stream) Close() error {
	return s.conn.Close()
}

func (s *Stream) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

type Websocket struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	Pings    int
	LastPing time.Time
}

// NewWebsocket wraps an established websocket and answers pings.
func NewWebsocket(conn *websocket.Conn) *Websocket {
	ws := &Websocket{conn: conn}
	conn.SetReadLimit(protocol.HeaderSize + protocol.MaxBodySize)
	conn.SetPingHandler(
		func(message string) error {
			ws.wmu.Lock()
			defer ws.wmu.Unlock()
			err := conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(time.Second))
			ws.LastPing = time.Now()
			ws.Pings++
			if err == websocket.ErrCloseSent {
				return nil
			} else if e, ok := err.(net.Error); ok && e.Timeout() {
				return nil
			}
			return err
		})
	return ws
}

func (ws *Websocket) ReadMessage() (protocol.Payload, error) {
	for {
		messageType, data, err := ws.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		r := bytes.NewReader(data)
		p, err := protocol.ReadMessage(r)
		if err != nil {
			return nil, err
		}
		if r.Len() != 0 {
			return nil, fmt.Errorf("%w: %d extra bytes", ErrTrailingBytes, r.Len())
		}
		return p, nil
	}
}

func (ws *Websocket) WriteFrame(frame []byte) error {
	ws.wmu.Lock()
	defer ws.wmu.Unlock()
	return ws.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (ws *Websocket) Close() error {
	ws.wmu.Lock()
	_ = ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	ws.wmu.Unlock()
	return ws.conn.Close()
}

func (ws *Websocket) RemoteAddr() string {
	return ws.conn.RemoteAddr().String()
}

// Dial connects to a server. A ws:// or wss:// address selects the websocket
// transport, anything else is a host:port for the TCP stream.
func Dial(ctx context.Context, addr string) (Conn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return NewWebsocket(conn), nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewStream(conn), nil
}
