package store

import "log/slog"

// commitHooks collects callbacks registered during a transaction. Implementations
// call run after the driver's commit returns nil and discard on rollback.
type commitHooks struct {
	fns []func()
}

func (h *commitHooks) add(fn func()) {
	h.fns = append(h.fns, fn)
}

func (h *commitHooks) discard() {
	h.fns = nil
}

func (h *commitHooks) run() {
	fns := h.fns
	h.fns = nil
	for _, fn := range fns {
		runHook(fn)
	}
}

// runHook isolates a panicking hook: the transaction is already committed.
func runHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("after-commit hook panicked", "panic", r)
		}
	}()
	fn()
}
