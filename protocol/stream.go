package protocol

import (
	"errors"
	"fmt"
	"io"
)

// ReadMessage reads one complete frame from r. A returned error wrapping
// ErrBodyLength means the frame was consumed but its body did not fit the
// opcode; the stream is still aligned. Any other error leaves the stream in
// an unknown state.
func ReadMessage(r io.Reader) (Payload, error) {
	head := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	h, err := DecodeHeader(head)
	if err != nil {
		return nil, err
	}
	body := make([]byte, h.BodyLength)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading %s body: %w", h.Opcode, err)
	}
	return DecodePayload(h.Opcode, body)
}

func WriteMessage(w io.Writer, p Payload) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// IsDecodeError reports whether err came from a well framed message whose
// body did not match its opcode.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrBodyLength)
}
