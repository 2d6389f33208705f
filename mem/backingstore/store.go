// Package backingstore provides the persistent page store that a demand-paged
// memory reads pages from on a fault and writes dirty pages back to.
package backingstore

import "errors"

var (
	// ErrStoreUnavailable reports a store that is missing, cannot be opened,
	// or is too small for the configured number of pages.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// ErrPageOutOfRange reports a page number the store does not hold.
	ErrPageOutOfRange = errors.New("page number out of range")

	// ErrBadPageBuffer reports a buffer whose length is not one page.
	ErrBadPageBuffer = errors.New("buffer is not exactly one page")
)

// A Store transfers fixed-size pages between persistent storage and
// physical memory frames. It carries no policy.
type Store interface {
	// ReadPage loads the page into buf, which must be exactly one page long.
	ReadPage(page uint64, buf []byte) error

	// WritePage persists data, which must be exactly one page long, as the
	// content of the page.
	WritePage(page uint64, data []byte) error

	// PageSize returns the number of bytes in a page.
	PageSize() uint64

	// NumPages returns the number of pages held by the store.
	NumPages() uint64

	// Close releases the resources of the store.
	Close() error
}

type geometry struct {
	pageSize uint64
	numPages uint64
}

func (g geometry) PageSize() uint64 {
	return g.pageSize
}

func (g geometry) NumPages() uint64 {
	return g.numPages
}

func (g geometry) check(page uint64, buf []byte) error {
	if page >= g.numPages {
		return ErrPageOutOfRange
	}

	if uint64(len(buf)) != g.pageSize {
		return ErrBadPageBuffer
	}

	return nil
}

func (g geometry) size() uint64 {
	return g.pageSize * g.numPages
}

func geometryMustBeValid(pageSize, numPages uint64) {
	if pageSize == 0 {
		panic("page size must be positive")
	}

	if numPages == 0 {
		panic("number of pages must be positive")
	}
}
