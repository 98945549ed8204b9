package wal

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Options configures Create/Open/OpenOrCreate. It carries an optional
// structured logger on the options struct; it defaults to a discard
// logger so the zero value is always safe to use.
type Options struct {
	// Path is the log file's path. Required.
	Path string

	// Index overrides the index file's path. Defaults to Path + ".lix".
	Index string

	// Writable opens both files read/write. Ignored by Create, which is
	// always writable.
	Writable bool

	// Log receives lifecycle and recovery events. Defaults to a
	// discard logger when nil.
	Log *logrus.Entry

	// CacheCapacity bounds the number of recently read/written entries
	// kept in memory. 0 (the default) disables the cache entirely.
	CacheCapacity int
}

func (o Options) indexPath() string {
	if o.Index != "" {
		return o.Index
	}
	return o.Path + ".lix"
}

func (o Options) logger() *logrus.Entry {
	if o.Log != nil {
		return o.Log
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return logrus.NewEntry(discard)
}
