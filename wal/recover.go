package wal

// Decision is a recovery handler: either "reject everything
// uncommitted" or a per-entry callback, modeled as a tagged variant
// rather than an interface or a callback-or-false argument.
type Decision struct {
	rejectAll bool
	handler   func(LSN, []byte) (bool, error)
}

// RejectAll is the "truncate every uncommitted entry" decision.
func RejectAll() Decision {
	return Decision{rejectAll: true}
}

// HandlerDecision runs fn once per uncommitted entry, in LSN order. fn
// returns (accept, err): a true accept commits the entry and moves on;
// a false accept truncates at that LSN and stops; a non-nil err
// aborts recovery and propagates.
func HandlerDecision(fn func(lsn LSN, payload []byte) (bool, error)) Decision {
	return Decision{handler: fn}
}

func (d Decision) decide(lsn LSN, payload []byte) (bool, error) {
	if d.rejectAll {
		return false, nil
	}
	return d.handler(lsn, payload)
}

// Recover inspects every uncommitted entry (LSN commit+1 .. head-1), in
// order, and lets d decide whether to keep or discard each one. If
// there is no uncommitted tail, Recover returns immediately. The first
// rejected entry truncates the log at that LSN and stops; entries
// accepted all the way to head commit the whole tail, then perform a
// final truncate(head) — a documented no-op, since the softened
// Truncate precondition in walindex accepts T == head.
func (w *WAL) Recover(d Decision) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	commit := w.index.CommitHead()
	head := w.index.Head()
	if commit+1 >= head {
		return nil
	}

	for l := commit + 1; l < head; l++ {
		payload, err := w.readLocked(l)
		if err != nil {
			return err
		}
		accept, err := d.decide(l, payload)
		if err != nil {
			return err
		}
		if !accept {
			w.logger.WithField("lsn", l).Warn("wal: recovery rejected entry, truncating")
			_, err := w.truncateLocked(l)
			return err
		}
		if _, err := w.index.Commit(l); err != nil {
			return err
		}
	}

	w.logger.Info("wal: recovery accepted all uncommitted entries")
	_, err := w.truncateLocked(w.index.CommitHead() + 1)
	return err
}
