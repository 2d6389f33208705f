package backingstore

import (
	"fmt"
	"os"
)

// FileStore is a Store kept in a single file, with page p stored at byte
// offset p * pageSize.
type FileStore struct {
	geometry

	path string
	file *os.File
}

// Open opens an existing store file for reading and writing. The file must
// hold at least numPages pages of pageSize bytes.
func Open(path string, pageSize, numPages uint64) (*FileStore, error) {
	geometryMustBeValid(pageSize, numPages)

	g := geometry{pageSize: pageSize, numPages: numPages}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if uint64(info.Size()) < g.size() {
		file.Close()
		return nil, fmt.Errorf(
			"%w: %s holds %d bytes, %d pages of %d bytes need %d",
			ErrStoreUnavailable, path, info.Size(),
			numPages, pageSize, g.size())
	}

	s := &FileStore{
		geometry: g,
		path:     path,
		file:     file,
	}

	return s, nil
}

// Create writes a new store file with numPages pages. The fill function, if
// not nil, sets the initial content of every page; otherwise pages are zero.
// An existing file is not overwritten.
func Create(
	path string,
	pageSize, numPages uint64,
	fill func(page uint64, buf []byte),
) error {
	geometryMustBeValid(pageSize, numPages)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	buf := make([]byte, pageSize)
	for page := uint64(0); page < numPages; page++ {
		clear(buf)

		if fill != nil {
			fill(page, buf)
		}

		_, err = file.Write(buf)
		if err != nil {
			file.Close()
			return err
		}
	}

	return file.Close()
}

// Path returns the path of the store file.
func (s *FileStore) Path() string {
	return s.path
}

// ReadPage loads the page into buf.
func (s *FileStore) ReadPage(page uint64, buf []byte) error {
	err := s.check(page, buf)
	if err != nil {
		return err
	}

	_, err = s.file.ReadAt(buf, int64(page*s.pageSize))
	if err != nil {
		return fmt.Errorf("reading page %d from %s: %w", page, s.path, err)
	}

	return nil
}

// WritePage stores data as the content of the page.
func (s *FileStore) WritePage(page uint64, data []byte) error {
	err := s.check(page, data)
	if err != nil {
		return err
	}

	_, err = s.file.WriteAt(data, int64(page*s.pageSize))
	if err != nil {
		return fmt.Errorf("writing page %d to %s: %w", page, s.path, err)
	}

	return nil
}

// Close closes the store file.
func (s *FileStore) Close() error {
	return s.file.Close()
}
