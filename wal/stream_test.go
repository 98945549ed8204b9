package wal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamDeliversInOrder(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	payloads := []string{"one", "two", "three", "four"}
	for _, p := range payloads {
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
	}

	s, err := w.ReadRange(0)
	require.NoError(t, err)
	require.Equal(t, len(payloads), s.Remaining())

	for i, want := range payloads {
		got, ok, err := s.Next()
		require.NoError(t, err)
		require.True(t, ok, "item %d", i)
		require.Equal(t, want, string(got))
	}

	_, ok, err := s.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, s.Remaining())
}

func TestStreamRespectsExplicitCount(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	for _, p := range []string{"a", "b", "c", "d", "e"} {
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
	}

	s, err := w.ReadRange(1, 2)
	require.NoError(t, err)
	require.Equal(t, 2, s.Remaining())

	got, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", string(got))

	got, ok, err = s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c", string(got))

	_, ok, err = s.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStreamEmptyRange(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("only"))
	require.NoError(t, err)

	s, err := w.ReadRange(1)
	require.NoError(t, err)
	require.Zero(t, s.Remaining())
	_, ok, err := s.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStreamRejectsNegativeCount(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("a"))
	require.NoError(t, err)

	_, err = w.ReadRange(0, -1)
	require.Error(t, err)
}

func TestStreamAllowsConcurrentWritesAfterCreation(t *testing.T) {
	w, err := Create(Options{Path: tempWALPath(t)})
	require.NoError(t, err)
	defer w.Close()

	for _, p := range []string{"x", "y"} {
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
	}

	s, err := w.ReadRange(0)
	require.NoError(t, err)

	_, err = w.Write([]byte("z"))
	require.NoError(t, err)

	got, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", string(got))
}
