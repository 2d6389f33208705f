// Package memory provides the byte containers of the simulated machine: the
// frames of physical memory and a sparse storage for larger address ranges.
package memory

import "errors"

// ErrBeyondCapacity is returned when an access falls outside a storage.
var ErrBeyondCapacity = errors.New(
	"accessing address beyond the storage capacity")

// A Storage keeps data in fixed-size units.
//
// The unit is similar to the concept of page in memory management. For the
// units that are not touched by Write, no memory will be allocated and reads
// return zeros.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity and unit
// size. The unit size must be a power of 2.
func NewStorage(capacity, unitSize uint64) *Storage {
	if unitSize == 0 || unitSize&(unitSize-1) != 0 {
		panic("unit size must be a power of 2")
	}

	storage := new(Storage)

	storage.unitSize = unitSize
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// NumAllocatedUnits returns how many units have been touched.
func (s *Storage) NumAllocatedUnits() int {
	return len(s.data)
}

// createOrGetStorageUnit retrieves a storage unit if the unit has been created
// before. Otherwise it initializes a storage unit in the storage object. Only
// the write path calls it.
func (s *Storage) createOrGetStorageUnit(address uint64) ([]byte, error) {
	if address >= s.capacity {
		return nil, ErrBeyondCapacity
	}

	baseAddr, _ := s.parseAddress(address)
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read copies length bytes starting at address into a new slice.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	res := make([]byte, length)

	err := s.ReadInto(address, res)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// ReadInto fills buf with the bytes starting at address.
func (s *Storage) ReadInto(address uint64, buf []byte) error {
	length := uint64(len(buf))
	if address+length > s.capacity {
		return ErrBeyondCapacity
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToRead := min(length-dataOffset, baseAddr+s.unitSize-currAddr)
		dst := buf[dataOffset : dataOffset+lenToRead]

		unit, ok := s.data[baseAddr]
		if ok {
			copy(dst, unit[inUnitAddr:inUnitAddr+lenToRead])
		} else {
			clear(dst)
		}

		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	length := uint64(len(data))
	if address+length > s.capacity {
		return ErrBeyondCapacity
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		unit, err := s.createOrGetStorageUnit(currAddr)
		if err != nil {
			return err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToWrite := min(length-dataOffset, baseAddr+s.unitSize-currAddr)

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])
		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}
