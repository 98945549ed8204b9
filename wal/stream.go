package wal

import (
	"fmt"

	"github.com/mdurand/ledgerwal/buffer"
	"github.com/mdurand/ledgerwal/walindex"
)

// Stream is a pull-driven lazy sequence over a range of log entries:
// the index is resolved once up front, then each entry is read from
// the log file on demand via an explicit Next() pull, buffering at
// most one look-ahead item in a buffer.Queue.
type Stream struct {
	w       *WAL
	entries []walindex.Entry
	next    int // index into entries of the next item to prefetch
	ahead   *buffer.Queue
	err     error
}

// ReadRange returns a lazy sequence over count entries starting at
// first. If count is omitted, it defaults to every remaining entry
// (head - first).
func (w *WAL) ReadRange(first LSN, count ...int) (*Stream, error) {
	entries, err := w.resolveRange(first, count)
	if err != nil {
		return nil, err
	}
	s := &Stream{w: w, entries: entries, ahead: buffer.New()}
	s.fill()
	return s, nil
}

func (w *WAL) resolveRange(first LSN, count []int) ([]walindex.Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := int(w.index.Head() - first)
	if len(count) > 0 {
		n = count[0]
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative range count %d", ErrInvalidArgument, n)
	}
	if n == 0 {
		return nil, nil
	}
	return w.index.GetRange(first, n)
}

// fill tops the look-ahead buffer up to one item, reading from the log
// file under the WAL's mutex.
func (s *Stream) fill() {
	if s.err != nil || !s.ahead.Empty() || s.next >= len(s.entries) {
		return
	}
	entry := s.entries[s.next]
	s.next++

	buf := make([]byte, entry.Length)
	if entry.Length > 0 {
		s.w.mu.Lock()
		_, err := s.w.log.ReadAt(buf, int64(entry.Offset))
		s.w.mu.Unlock()
		if err != nil {
			s.err = err
			return
		}
	}
	s.ahead.Push(buf)
}

// Next returns the next entry's payload in order. ok is false once the
// sequence is exhausted; err is non-nil if a read failed, in which
// case the sequence is permanently done.
func (s *Stream) Next() (payload []byte, ok bool, err error) {
	if s.ahead.Empty() {
		s.fill()
	}
	if s.err != nil {
		return nil, false, s.err
	}
	data, ok := s.ahead.Pop()
	if !ok {
		return nil, false, nil
	}
	s.fill()
	return data, true, nil
}

// Remaining returns the number of entries not yet delivered by Next,
// including the one currently buffered as look-ahead.
func (s *Stream) Remaining() int {
	return len(s.entries) - s.next + s.ahead.Len()
}
