package watch

import (
	"sync"
	"time"
)

// DebounceMS is the fixed delay between the last observed change and
// the callback firing.
const DebounceMS = 500

// Debouncer collects paths and invokes a callback with the accumulated
// set once DebounceMS has elapsed since the most recent Add call.
type Debouncer struct {
	delay    time.Duration
	callback func([]string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// NewDebouncer returns a Debouncer that calls callback with the
// deduplicated, order-unspecified set of paths added since its last fire.
func NewDebouncer(delay time.Duration, callback func([]string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
		pending:  make(map[string]struct{}),
	}
}

// Add records path as changed and (re)starts the debounce timer.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	d.callback(paths)
}

// Stop cancels any pending timer without flushing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
