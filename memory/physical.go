package memory

import "fmt"

// PhysicalMemory is the RAM of the simulated machine, organized as an array
// of equally sized frames.
type PhysicalMemory struct {
	frameSize uint64
	numFrames uint64
	data      []byte
}

// NewPhysicalMemory allocates numFrames frames of frameSize bytes, all zero.
func NewPhysicalMemory(numFrames, frameSize uint64) *PhysicalMemory {
	if numFrames == 0 || frameSize == 0 {
		panic("physical memory must have at least one non-empty frame")
	}

	return &PhysicalMemory{
		frameSize: frameSize,
		numFrames: numFrames,
		data:      make([]byte, numFrames*frameSize),
	}
}

// FrameSize returns the number of bytes in a frame.
func (m *PhysicalMemory) FrameSize() uint64 {
	return m.frameSize
}

// NumFrames returns the number of frames.
func (m *PhysicalMemory) NumFrames() uint64 {
	return m.numFrames
}

// Size returns the total number of bytes.
func (m *PhysicalMemory) Size() uint64 {
	return uint64(len(m.data))
}

// Frame returns the bytes of a frame. The returned slice aliases the memory,
// so writes through it change the frame.
func (m *PhysicalMemory) Frame(frame uint64) []byte {
	if frame >= m.numFrames {
		panic(fmt.Sprintf("frame %d out of range [0, %d)", frame, m.numFrames))
	}

	start := frame * m.frameSize

	return m.data[start : start+m.frameSize : start+m.frameSize]
}

// ByteAt returns the byte at a physical address.
func (m *PhysicalMemory) ByteAt(addr uint64) (byte, error) {
	if addr >= uint64(len(m.data)) {
		return 0, fmt.Errorf("physical address 0x%x: %w", addr, ErrBeyondCapacity)
	}

	return m.data[addr], nil
}

// SetByte sets the byte at a physical address.
func (m *PhysicalMemory) SetByte(addr uint64, v byte) error {
	if addr >= uint64(len(m.data)) {
		return fmt.Errorf("physical address 0x%x: %w", addr, ErrBeyondCapacity)
	}

	m.data[addr] = v

	return nil
}
