package wal

import (
	"errors"

	"github.com/mdurand/ledgerwal/walindex"
)

// Argument/state assertion errors.
var (
	ErrInvalidArgument = errors.New("wal: invalid argument")
	ErrNotOpen         = errors.New("wal: not open")
)

// ErrOutOfOrderCommit is returned when a commit names an LSN beyond the
// next uncommitted one (committing an earlier LSN succeeds as a no-op):
// the caller may retry with the LSN named in the wrapped message.
var ErrOutOfOrderCommit = walindex.ErrOutOfOrderCommit

// ErrCommittedTruncate is returned when truncating at or before the
// commit head.
var ErrCommittedTruncate = walindex.ErrCommittedTruncate
