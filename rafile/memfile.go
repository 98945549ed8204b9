package rafile

import "io"

// MemFile implements File backed by a growable byte slice, with Truncate
// and a writable flag. It is used by tests; the wal package always opens
// OS-backed files and never constructs a MemFile.
type MemFile struct {
	name     string
	data     []byte
	writable bool
}

// NewMemFile creates a new empty in-memory file.
func NewMemFile(name string) *MemFile {
	return &MemFile{name: name, writable: true}
}

func (m *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:], p), nil
}

func (m *MemFile) Truncate(size int64) error {
	switch {
	case size < int64(len(m.data)):
		m.data = m.data[:size]
	case size > int64(len(m.data)):
		grown := make([]byte, size)
		copy(grown, m.data)
		m.data = grown
	}
	return nil
}

func (m *MemFile) Sync() error  { return nil }
func (m *MemFile) Close() error { return nil }
func (m *MemFile) Name() string { return m.name }

func (m *MemFile) Size() (int64, error) { return int64(len(m.data)), nil }

func (m *MemFile) Writable() bool { return m.writable }
