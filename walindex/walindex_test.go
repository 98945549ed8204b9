package walindex

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdurand/ledgerwal/rafile"
)

func tempIndexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.lix")
}

func TestCreateInitialState(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	require.Equal(t, "IDX$", idx.Marker())
	require.EqualValues(t, 0, idx.Base())
	require.EqualValues(t, 0, idx.Head())
	require.EqualValues(t, NoCommit, idx.CommitHead())
}

func TestIncrementAssignsDenseLSNs(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	lsn, err := idx.Increment(34)
	require.NoError(t, err)
	require.EqualValues(t, 0, lsn)
	require.EqualValues(t, 1, idx.Head())

	entry, err := idx.Get(0)
	require.NoError(t, err)
	require.Equal(t, Entry{Offset: 0, Length: 34}, entry)

	lsn, err = idx.Increment(34 + 24)
	require.NoError(t, err)
	require.EqualValues(t, 1, lsn)

	entry, err = idx.Get(1)
	require.NoError(t, err)
	require.Equal(t, Entry{Offset: 34, Length: 24}, entry)
}

func TestCommitOrdering(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	idx.Increment(10)
	idx.Increment(20)
	idx.Increment(30)

	_, err = idx.Commit(1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOutOfOrderCommit))

	l, err := idx.Commit(0)
	require.NoError(t, err)
	require.EqualValues(t, 0, l)

	l, err = idx.Commit(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, l)

	// Re-committing an already committed LSN is idempotent success.
	l, err = idx.Commit(0)
	require.NoError(t, err)
	require.EqualValues(t, 0, l)
}

func TestIsCommittedQuirkPreserved(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	idx.Increment(10)
	idx.Increment(20)
	idx.Commit(0)

	// The most recently committed LSN reports as NOT committed by the
	// strict-less-than predicate, preserved verbatim.
	require.False(t, idx.IsCommitted(0))
	require.True(t, idx.IsCommittedOrEarlier(0))
	require.False(t, idx.IsCommitted(1))
}

func TestTruncateSemantics(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	idx.Increment(10)
	idx.Increment(20)
	idx.Increment(30)

	idx.Commit(0)
	_, err = idx.Truncate(0)
	require.True(t, errors.Is(err, ErrCommittedTruncate))

	newSize, err := idx.Truncate(1)
	require.NoError(t, err)
	require.EqualValues(t, 10, newSize)
	require.EqualValues(t, 1, idx.Head())
	require.EqualValues(t, 0, idx.CommitHead())
}

func TestTruncateToHeadIsNoop(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	idx.Increment(10)
	idx.Commit(0)

	newSize, err := idx.Truncate(idx.Head())
	require.NoError(t, err)
	require.EqualValues(t, 10, newSize)
	require.EqualValues(t, 1, idx.Head())
}

func TestOpenRejectsBadMarker(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Create(path, 0, 0)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	f, err := rafile.Open(path, true)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("XXXX"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, true)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBadMarker))
}

func TestGetRange(t *testing.T) {
	idx, err := Create(tempIndexPath(t), 0, 0)
	require.NoError(t, err)
	defer idx.Close()

	idx.Increment(10)
	idx.Increment(25)
	idx.Increment(25) // zero-length entry at LSN 2

	entries, err := idx.GetRange(0, 2)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Offset: 0, Length: 10}, {Offset: 10, Length: 15}}, entries)
}

func TestReopenPreservesState(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Create(path, 0, 0)
	require.NoError(t, err)

	idx.Increment(10)
	idx.Increment(20)
	idx.Commit(0)
	require.NoError(t, idx.Close())

	reopened, err := Open(path, true)
	require.NoError(t, err)
	defer reopened.Close()

	require.EqualValues(t, 2, reopened.Head())
	require.EqualValues(t, 0, reopened.CommitHead())
	entry, err := reopened.Get(1)
	require.NoError(t, err)
	require.Equal(t, Entry{Offset: 10, Length: 10}, entry)
}
