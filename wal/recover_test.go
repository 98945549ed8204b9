package wal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdurand/ledgerwal/walindex"
)

func TestRecoverNoopWhenNothingUncommitted(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("one"))
	require.NoError(t, err)
	_, err = w.Commit(0)
	require.NoError(t, err)

	called := false
	err = w.Recover(HandlerDecision(func(lsn LSN, payload []byte) (bool, error) {
		called = true
		return true, nil
	}))
	require.NoError(t, err)
	require.False(t, called)
	require.EqualValues(t, 1, w.Next())
	require.EqualValues(t, 0, w.CommitHead())
}

func TestRecoverNoopOnEmptyLog(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Recover(RejectAll()))
	require.EqualValues(t, 0, w.Next())
}

func TestRecoverPropagatesHandlerError(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	for _, p := range []string{"a", "b", "c"} {
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
	}

	boom := errors.New("handler failed")
	err = w.Recover(HandlerDecision(func(lsn LSN, payload []byte) (bool, error) {
		return false, boom
	}))
	require.Error(t, err)
	require.True(t, errors.Is(err, boom))

	// State is unchanged: recovery aborted before truncating.
	require.EqualValues(t, 3, w.Next())
	require.EqualValues(t, walindex.NoCommit, w.CommitHead())
}
