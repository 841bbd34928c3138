package transaction

// hooks holds callbacks deferred until the outcome of a transaction is known
type hooks struct {
	onCommit   []func()
	onRollback []func()
}

// adopt moves the callbacks of a released savepoint to its parent
func (h *hooks) adopt(child *hooks) {
	h.onCommit = append(h.onCommit, child.onCommit...)
	h.onRollback = append(h.onRollback, child.onRollback...)
	child.onCommit, child.onRollback = nil, nil
}

func (h *hooks) runCommit() {
	fns := h.onCommit
	h.onCommit, h.onRollback = nil, nil
	for _, fn := range fns {
		fn()
	}
}

// runRollback runs in reverse registration order so state restores unwind cleanly
func (h *hooks) runRollback() {
	fns := h.onRollback
	h.onCommit, h.onRollback = nil, nil
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// OnCommit registers fn to run once the top-level transaction commits
func (t *Transaction) OnCommit(fn func()) {
	t.hooks.onCommit = append(t.hooks.onCommit, fn)
}

// OnRollback registers fn to run if this transaction, or any transaction it is
// released into, rolls back
func (t *Transaction) OnRollback(fn func()) {
	t.hooks.onRollback = append(t.hooks.onRollback, fn)
}
