// Package walindex implements the WAL's index file: a fixed header
// plus a densely packed array of byte offsets mapping LSN -> (offset,
// length) inside the companion log file. The binary layout is
// load-bearing — it must stay bit-exact across versions of this
// library.
package walindex

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mdurand/ledgerwal/rafile"
)

// LSN is a log serial number: a dense, non-negative integer assigned in
// write order, or -1 as the "no commit yet" sentinel.
type LSN = int32

// NoCommit is the sentinel commit value meaning "nothing committed yet".
const NoCommit LSN = -1

const (
	hlen       = 16 // header size in bytes
	slotSize   = 4  // bytes per offset slot
	markerOff  = 0
	baseOff    = 4
	headOff    = 8
	commitOff  = 12
)

var marker = [4]byte{'I', 'D', 'X', '$'}

// Errors returned by Index operations.
var (
	ErrBadMarker         = errors.New("walindex: invalid marker")
	ErrTruncatedHeader   = errors.New("walindex: file shorter than header")
	ErrOutOfRange        = errors.New("walindex: lsn out of range")
	ErrOutOfOrderCommit  = errors.New("walindex: out of order commit")
	ErrCommittedTruncate = errors.New("walindex: cannot truncate a committed log entry")
	ErrNotOpen           = errors.New("walindex: index is not open")
)

// Entry describes one LSN's location inside the log file.
type Entry struct {
	Offset int32
	Length int32
}

// Index is the in-memory handle onto an open index file. It caches the
// 16-byte header in place and flushes the touched fields piecewise on
// each mutation; offset slots are never cached, each lookup re-reads
// the file.
type Index struct {
	file   rafile.File
	header [hlen]byte
}

// Create initializes a brand-new index file at path: marker, base,
// head=base, commit=-1, and the first sentinel offset slot holding
// byteOffset (normally 0). Create is not idempotent; it presumes no
// file exists yet at path.
func Create(path string, base int32, byteOffset int32) (*Index, error) {
	f, err := rafile.Create(path)
	if err != nil {
		return nil, err
	}
	idx := &Index{file: f}
	copy(idx.header[markerOff:], marker[:])
	binary.BigEndian.PutUint32(idx.header[baseOff:], uint32(base))
	binary.BigEndian.PutUint32(idx.header[headOff:], uint32(base))
	binary.BigEndian.PutUint32(idx.header[commitOff:], uint32(NoCommit))

	if _, err := idx.file.WriteAt(idx.header[:], 0); err != nil {
		f.Close()
		return nil, err
	}
	var slot [slotSize]byte
	binary.BigEndian.PutUint32(slot[:], uint32(byteOffset))
	if _, err := idx.file.WriteAt(slot[:], hlen); err != nil {
		f.Close()
		return nil, err
	}
	return idx, nil
}

// Open opens an existing index file at path, validating the header.
func Open(path string, writable bool) (*Index, error) {
	f, err := rafile.Open(path, writable)
	if err != nil {
		return nil, err
	}
	size, err := f.Size()
	if err != nil {
		f.Close()
		return nil, err
	}
	if size < hlen {
		f.Close()
		return nil, ErrTruncatedHeader
	}
	idx := &Index{file: f}
	if _, err := f.ReadAt(idx.header[:], 0); err != nil {
		f.Close()
		return nil, err
	}
	if idx.header[0] != marker[0] || idx.header[1] != marker[1] ||
		idx.header[2] != marker[2] || idx.header[3] != marker[3] {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrBadMarker, path)
	}
	return idx, nil
}

// Marker returns the file's magic marker, "IDX$" when valid.
func (idx *Index) Marker() string { return string(idx.header[markerOff : markerOff+4]) }

// Base returns the reserved segmentation base, currently always 0.
func (idx *Index) Base() int32 {
	return int32(binary.BigEndian.Uint32(idx.header[baseOff:]))
}

// Head returns the next free LSN (one past the last written entry).
func (idx *Index) Head() int32 {
	return int32(binary.BigEndian.Uint32(idx.header[headOff:]))
}

// CommitHead returns the last committed LSN, or NoCommit.
func (idx *Index) CommitHead() int32 {
	return int32(binary.BigEndian.Uint32(idx.header[commitOff:]))
}

// IsCommitted reports whether L is strictly before the commit head. The
// most recently committed LSN itself reports as NOT committed by this
// predicate. Use IsCommittedOrEarlier for the inclusive semantics.
func (idx *Index) IsCommitted(l LSN) bool {
	return l < idx.CommitHead()
}

// IsCommittedOrEarlier reports whether L has been committed, using the
// intuitive L <= commit semantics. Added alongside IsCommitted rather
// than replacing it.
func (idx *Index) IsCommittedOrEarlier(l LSN) bool {
	return l <= idx.CommitHead()
}

// Commit advances the commit head to L. Committing an already-committed
// (or earlier) LSN is idempotent success. Committing out of order
// (L != commit+1 and L >= commit+1) fails with ErrOutOfOrderCommit.
func (idx *Index) Commit(l LSN) (LSN, error) {
	commit := idx.CommitHead()
	expected := commit + 1
	if l < expected {
		return l, nil
	}
	if l != expected {
		return 0, fmt.Errorf("%w: expected %d but received %d", ErrOutOfOrderCommit, expected, l)
	}
	binary.BigEndian.PutUint32(idx.header[commitOff:], uint32(l))
	if _, err := idx.file.WriteAt(idx.header[commitOff:commitOff+4], commitOff); err != nil {
		return 0, err
	}
	return l, nil
}

// Offset returns the byte offset of LSN l, valid for l <= Head().
func (idx *Index) Offset(l LSN) (int32, error) {
	if l > idx.Head() {
		return 0, fmt.Errorf("%w: %d > head %d", ErrOutOfRange, l, idx.Head())
	}
	pos := idx.slotPos(l)
	var buf [slotSize]byte
	if _, err := idx.file.ReadAt(buf[:], pos); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// Get returns the (offset, length) of LSN l, valid for l < Head().
func (idx *Index) Get(l LSN) (Entry, error) {
	if l >= idx.Head() {
		return Entry{}, fmt.Errorf("%w: %d >= head %d", ErrOutOfRange, l, idx.Head())
	}
	pos := idx.slotPos(l)
	var buf [2 * slotSize]byte
	if _, err := idx.file.ReadAt(buf[:], pos); err != nil {
		return Entry{}, err
	}
	off := int32(binary.BigEndian.Uint32(buf[0:4]))
	next := int32(binary.BigEndian.Uint32(buf[4:8]))
	return Entry{Offset: off, Length: next - off}, nil
}

// GetRange returns count consecutive entries starting at l, valid for
// l < Head() and count <= Head()-l.
func (idx *Index) GetRange(l LSN, count int) ([]Entry, error) {
	if l >= idx.Head() {
		return nil, fmt.Errorf("%w: %d >= head %d", ErrOutOfRange, l, idx.Head())
	}
	if int32(count) > idx.Head()-l {
		return nil, fmt.Errorf("%w: count %d exceeds available %d", ErrOutOfRange, count, idx.Head()-l)
	}
	buf := make([]byte, (count+1)*slotSize)
	if _, err := idx.file.ReadAt(buf, idx.slotPos(l)); err != nil {
		return nil, err
	}
	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		off := int32(binary.BigEndian.Uint32(buf[i*slotSize:]))
		next := int32(binary.BigEndian.Uint32(buf[(i+1)*slotSize:]))
		entries[i] = Entry{Offset: off, Length: next - off}
	}
	return entries, nil
}

// Increment records that the entry at the current head has just been
// written, spanning up to (but not including) nextEndOffset. It writes
// the new sentinel slot, bumps head in memory, persists it, and
// returns the LSN that was just assigned (the pre-bump head).
func (idx *Index) Increment(nextEndOffset int32) (LSN, error) {
	assigned := idx.Head()
	var slot [slotSize]byte
	binary.BigEndian.PutUint32(slot[:], uint32(nextEndOffset))
	if _, err := idx.file.WriteAt(slot[:], idx.slotPos(assigned+1)); err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint32(idx.header[headOff:], uint32(assigned+1))
	if _, err := idx.file.WriteAt(idx.header[headOff:headOff+4], headOff); err != nil {
		return 0, err
	}
	return assigned, nil
}

// Truncate drops every LSN from T onward, requiring commit < T <= head
// (T == head is accepted as a no-op). It returns the new effective
// end-of-log byte offset.
func (idx *Index) Truncate(t LSN) (int32, error) {
	commit := idx.CommitHead()
	head := idx.Head()
	if t <= commit {
		return 0, ErrCommittedTruncate
	}
	if t > head {
		return 0, fmt.Errorf("%w: %d > head %d", ErrOutOfRange, t, head)
	}
	if t == head {
		return idx.Offset(head)
	}
	binary.BigEndian.PutUint32(idx.header[headOff:], uint32(t))
	if _, err := idx.file.WriteAt(idx.header[headOff:headOff+4], headOff); err != nil {
		return 0, err
	}
	base := idx.Base()
	if t == base {
		return idx.Offset(base)
	}
	last, err := idx.Get(t - 1)
	if err != nil {
		return 0, err
	}
	return last.Offset + last.Length, nil
}

// Close closes the underlying file and clears the header cache.
func (idx *Index) Close() error {
	err := idx.file.Close()
	idx.header = [hlen]byte{}
	return err
}

// Name returns the index file's path.
func (idx *Index) Name() string { return idx.file.Name() }

func (idx *Index) slotPos(l LSN) int64 {
	return int64(hlen) + int64(l-idx.Base())*slotSize
}
