package vm

import (
	"errors"
	"fmt"
)

// ErrAddressOutOfRange reports a logical address that does not fit in the
// address space.
var ErrAddressOutOfRange = errors.New("logical address out of range")

// AddressLayout describes how a logical address splits into a page number
// (high-order bits) and an offset within the page (low-order bits).
type AddressLayout struct {
	Log2PageSize uint64
	NumPageBits  uint64
}

// PageSize returns the number of bytes in a page.
func (l AddressLayout) PageSize() uint64 {
	return 1 << l.Log2PageSize
}

// NumPages returns the number of pages in the address space.
func (l AddressLayout) NumPages() uint64 {
	return 1 << l.NumPageBits
}

// AddressSpaceSize returns the number of addressable bytes.
func (l AddressLayout) AddressSpaceSize() uint64 {
	return 1 << (l.Log2PageSize + l.NumPageBits)
}

// Check returns an error if the address is outside the address space.
func (l AddressLayout) Check(addr uint64) error {
	if addr >= l.AddressSpaceSize() {
		return fmt.Errorf("%w: 0x%x, address space is 0x%x bytes",
			ErrAddressOutOfRange, addr, l.AddressSpaceSize())
	}

	return nil
}

// PageNumber returns the page that holds the address.
func (l AddressLayout) PageNumber(addr uint64) uint64 {
	return (addr >> l.Log2PageSize) & (l.NumPages() - 1)
}

// Offset returns the position of the address within its page.
func (l AddressLayout) Offset(addr uint64) uint64 {
	return addr & (l.PageSize() - 1)
}

// PhysicalAddress joins a frame number and an in-page offset.
func (l AddressLayout) PhysicalAddress(frame, offset uint64) uint64 {
	return frame<<l.Log2PageSize | offset
}

// MustBeValid panics if the layout cannot address a 64-bit space.
func (l AddressLayout) MustBeValid() {
	if l.Log2PageSize+l.NumPageBits >= 64 {
		panic("address layout does not fit in 64 bits")
	}
}
