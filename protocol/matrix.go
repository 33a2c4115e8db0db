package protocol

import (
	"encoding/binary"
	"fmt"
)

const matrixHeaderSize = 12

// Matrix3D is a width x height x depth grid of bytes stored level by level,
// row by row. It holds both room bitmasks and the rendered World Grid; the
// latter is what START_NOTIFY carries.
type Matrix3D struct {
	Width, Height, Depth uint32
	Data                 []byte
}

func NewMatrix3D(width, height, depth int, fill byte) *Matrix3D {
	m := &Matrix3D{
		Width:  uint32(width),
		Height: uint32(height),
		Depth:  uint32(depth),
		Data:   make([]byte, width*height*depth),
	}
	if fill != 0 {
		for i := range m.Data {
			m.Data[i] = fill
		}
	}
	return m
}

func (*Matrix3D) Opcode() Opcode { return StartNotify }
func (*Matrix3D) payload()       {}

func (m *Matrix3D) index(x, y, z int) int {
	return (z*int(m.Height)+y)*int(m.Width) + x
}

func (m *Matrix3D) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 &&
		x < int(m.Width) && y < int(m.Height) && z < int(m.Depth)
}

func (m *Matrix3D) At(x, y, z int) byte {
	return m.Data[m.index(x, y, z)]
}

func (m *Matrix3D) Set(x, y, z int, v byte) {
	m.Data[m.index(x, y, z)] = v
}

// Level returns the backing bytes of level z.
func (m *Matrix3D) Level(z int) []byte {
	size := int(m.Width * m.Height)
	return m.Data[z*size : (z+1)*size]
}

func (m *Matrix3D) MarshalBinary() ([]byte, error) {
	want := int(m.Width) * int(m.Height) * int(m.Depth)
	if len(m.Data) != want {
		return nil, fmt.Errorf("matrix data holds %d bytes, dimensions need %d", len(m.Data), want)
	}
	data := make([]byte, matrixHeaderSize+len(m.Data))
	binary.BigEndian.PutUint32(data[0:4], m.Width)
	binary.BigEndian.PutUint32(data[4:8], m.Height)
	binary.BigEndian.PutUint32(data[8:12], m.Depth)
	copy(data[matrixHeaderSize:], m.Data)
	return data, nil
}

func (m *Matrix3D) UnmarshalBinary(data []byte) error {
	if len(data) < matrixHeaderSize {
		return fmt.Errorf("%w: matrix header needs %d bytes, got %d", ErrBodyLength, matrixHeaderSize, len(data))
	}
	w := binary.BigEndian.Uint32(data[0:4])
	h := binary.BigEndian.Uint32(data[4:8])
	d := binary.BigEndian.Uint32(data[8:12])
	cells := uint64(w) * uint64(h) * uint64(d)
	if uint64(len(data)-matrixHeaderSize) != cells {
		return fmt.Errorf("%w: %dx%dx%d matrix with %d data bytes", ErrBodyLength, w, h, d, len(data)-matrixHeaderSize)
	}
	m.Width, m.Height, m.Depth = w, h, d
	m.Data = make([]byte, cells)
	copy(m.Data, data[matrixHeaderSize:])
	return nil
}
