package backingstore

import "github.com/sarchlab/vmsim/memory"

// MemStore is a Store that lives in host memory. Pages read as zero until
// they are written.
type MemStore struct {
	geometry

	storage *memory.Storage
}

// NewMemStore creates an in-memory store. The page size must be a power of 2.
func NewMemStore(pageSize, numPages uint64) *MemStore {
	geometryMustBeValid(pageSize, numPages)

	g := geometry{pageSize: pageSize, numPages: numPages}

	return &MemStore{
		geometry: g,
		storage:  memory.NewStorage(g.size(), pageSize),
	}
}

// ReadPage loads the page into buf.
func (s *MemStore) ReadPage(page uint64, buf []byte) error {
	err := s.check(page, buf)
	if err != nil {
		return err
	}

	return s.storage.ReadInto(page*s.pageSize, buf)
}

// WritePage stores data as the content of the page.
func (s *MemStore) WritePage(page uint64, data []byte) error {
	err := s.check(page, data)
	if err != nil {
		return err
	}

	return s.storage.Write(page*s.pageSize, data)
}

// Close does nothing.
func (s *MemStore) Close() error {
	return nil
}
