package limiter

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is a process-local limiter with a failure window and lockout.
// Counters are keyed by (lower-cased email, ip hash).
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*entry
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

type entry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// NewMemory constructs an in-memory limiter. maxFails <= 0 disables lockout.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		entries:  make(map[string]*entry),
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
	}
}

func key(email string, ipHash []byte) string {
	return strings.ToLower(email) + "\x00" + string(ipHash)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (email, ip).
func (l *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key(email, ipHash))
	return nil
}

// Failure records a failed attempt; may set a block until a future time.
// A failure arriving after the window has elapsed restarts the count.
func (l *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(email, ipHash)
	e, ok := l.entries[k]
	switch {
	case !ok:
		e = &entry{}
		l.entries[k] = e
	case now.Sub(e.updatedAt) > l.window:
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now

	if l.maxFails > 0 && e.fails >= l.maxFails {
		e.blockedUntil = now.Add(l.blockFor)
		return true, l.blockFor, nil
	}
	return false, 0, nil
}

// Sweep drops entries idle for longer than the window and not blocked.
func (l *Memory) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for k, e := range l.entries {
		if now.Sub(e.updatedAt) > l.window && !e.blockedUntil.After(now) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (l *Memory) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}
