// Package wal implements the write-ahead log facade: the public
// write/read/readRange/commit/truncate/recover/close surface that
// composes one rafile log file with one walindex index file, under a
// mutex-guarded single-owner-file discipline that always persists the
// authoritative index pointer last.
package wal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mdurand/ledgerwal/rafile"
	"github.com/mdurand/ledgerwal/walindex"
)

// LSN is a log serial number. See walindex.LSN for the underlying type.
type LSN = walindex.LSN

// WAL composes one log file and one index file under a single mutex.
// The facade does not enforce cross-call ordering beyond that mutex:
// launching a second mutating operation while the first has not
// returned is the caller's bug, not the WAL's to prevent at a higher
// level than data-race safety.
type WAL struct {
	mu     sync.Mutex
	log    rafile.File
	index  *walindex.Index
	logger *logrus.Entry
	cache  *entryCache
}

// Create creates a brand-new WAL: the log file, then the index file
// (base=0), and fails if either already exists.
func Create(opts Options) (*WAL, error) {
	logFile, err := rafile.Create(opts.Path)
	if err != nil {
		return nil, err
	}
	idx, err := walindex.Create(opts.indexPath(), 0, 0)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	w := &WAL{log: logFile, index: idx, logger: opts.logger(), cache: newEntryCache(opts.CacheCapacity)}
	w.logger.WithField("path", opts.Path).Info("wal: created")
	return w, nil
}

// Open opens both an existing log file and index file. It fails with
// rafile.ErrNotFound if either is absent.
func Open(opts Options) (*WAL, error) {
	logFile, err := rafile.Open(opts.Path, opts.Writable)
	if err != nil {
		return nil, err
	}
	idx, err := walindex.Open(opts.indexPath(), opts.Writable)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	w := &WAL{log: logFile, index: idx, logger: opts.logger(), cache: newEntryCache(opts.CacheCapacity)}
	w.logger.WithField("path", opts.Path).Info("wal: opened")
	return w, nil
}

// OpenOrCreate tries Open, falling back to Create when the files are
// absent and opts.Writable is true.
func OpenOrCreate(opts Options) (*WAL, error) {
	w, err := Open(opts)
	if err == nil {
		return w, nil
	}
	if !opts.Writable {
		return nil, err
	}
	if !errors.Is(err, rafile.ErrNotFound) {
		return nil, err
	}
	return Create(opts)
}

// Name returns the log file's path.
func (w *WAL) Name() string { return w.log.Name() }

// Index exposes the underlying index, e.g. for diagnostics.
func (w *WAL) Index() *walindex.Index { return w.index }

// Writable reports whether the log file was opened for writing.
func (w *WAL) Writable() bool { return w.log.Writable() }

// Size returns the log file's current byte size.
func (w *WAL) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.log.Size()
}

// Next returns the LSN the next Write will assign.
func (w *WAL) Next() LSN {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.Head()
}

// CommitHead returns the last committed LSN, or walindex.NoCommit.
func (w *WAL) CommitHead() LSN {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.CommitHead()
}

// IsCommitted reports whether l is committed, using the index's
// strict-less-than predicate (see walindex.Index.IsCommitted).
func (w *WAL) IsCommitted(l LSN) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.IsCommitted(l)
}

// Write appends payload as a new entry and returns its assigned LSN.
// payload must be non-empty.
func (w *WAL) Write(payload []byte) (LSN, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("%w: write requires a non-empty payload", ErrInvalidArgument)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	startOffset, err := w.index.Offset(w.index.Head())
	if err != nil {
		return 0, err
	}
	if _, err := w.log.WriteAt(payload, int64(startOffset)); err != nil {
		return 0, err
	}
	endOffset := startOffset + int32(len(payload))
	lsn, err := w.index.Increment(endOffset)
	if err != nil {
		return 0, err
	}
	cached := make([]byte, len(payload))
	copy(cached, payload)
	w.cache.put(lsn, cached)
	return lsn, nil
}

// Read returns the exact bytes written at LSN l.
func (w *WAL) Read(l LSN) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readLocked(l)
}

func (w *WAL) readLocked(l LSN) ([]byte, error) {
	if cached, ok := w.cache.get(l); ok {
		out := make([]byte, len(cached))
		copy(out, cached)
		return out, nil
	}
	entry, err := w.index.Get(l)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, entry.Length)
	if entry.Length == 0 {
		return buf, nil
	}
	if _, err := w.log.ReadAt(buf, int64(entry.Offset)); err != nil {
		return nil, err
	}
	w.cache.put(l, buf)
	return buf, nil
}

// Commit advances the commit head to l. See walindex.Index.Commit for
// the exact ordering/idempotency rules.
func (w *WAL) Commit(l LSN) (LSN, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index.Commit(l)
}

// Truncate drops every LSN from t onward and truncates the log file to
// match. It returns the log file's new size.
func (w *WAL) Truncate(t LSN) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncateLocked(t)
}

func (w *WAL) truncateLocked(t LSN) (int64, error) {
	newSize, err := w.index.Truncate(t)
	if err != nil {
		return 0, err
	}
	if err := w.log.Truncate(int64(newSize)); err != nil {
		return 0, err
	}
	w.cache.invalidateFrom(t)
	return int64(newSize), nil
}

// CacheStats reports the entry cache's hit/miss counters, current
// occupancy, and capacity. All four are zero when caching is disabled.
func (w *WAL) CacheStats() (hits, misses uint64, size, capacity int) {
	return w.cache.stats()
}

// Close closes both underlying files. Close is not idempotent: a second
// call returns the already-closed error from the log file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	logErr := w.log.Close()
	idxErr := w.index.Close()
	if logErr != nil {
		return logErr
	}
	return idxErr
}
