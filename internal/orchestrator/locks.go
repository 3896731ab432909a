package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
)

// LockMode decides what a signal does when its symbol already has a bracket
// in flight
type LockMode string

const (
	// LockBlock waits for the in-flight bracket, bounded by the caller's context
	LockBlock LockMode = "block"
	// LockReject fails immediately with a KindBusy error
	LockReject LockMode = "reject"
)

// ParseLockMode parses a LOCK_MODE value; empty means block
func ParseLockMode(s string) (LockMode, error) {
	switch LockMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LockBlock:
		return LockBlock, nil
	case LockReject:
		return LockReject, nil
	}
	return "", fmt.Errorf("invalid lock mode %q: use block or reject", s)
}

// symbolLocks holds one weight-1 semaphore per symbol. Entries are never
// removed; the set of traded symbols is small.
type symbolLocks struct {
	mode LockMode
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func newSymbolLocks(mode LockMode) *symbolLocks {
	if mode == "" {
		mode = LockBlock
	}
	return &symbolLocks{mode: mode, sems: make(map[string]*semaphore.Weighted)}
}

func (l *symbolLocks) get(symbol string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.sems[symbol]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[symbol] = sem
	}
	return sem
}

// acquire takes the lock for symbol and returns its release func
func (l *symbolLocks) acquire(ctx context.Context, symbol string) (func(), error) {
	sem := l.get(symbol)

	if l.mode == LockReject {
		if !sem.TryAcquire(1) {
			return nil, boterrors.NewBusyError(symbol)
		}
		return func() { sem.Release(1) }, nil
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		busy := boterrors.NewBusyError(symbol)
		busy.Underlying = err
		return nil, busy
	}
	return func() { sem.Release(1) }, nil
}
