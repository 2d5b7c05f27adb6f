package orchestrator

import (
	"sync"

	"github.com/linto-ai/lintoctl/pkg/errors"
)

// locks serializes operations per profile. A second operation on a
// profile whose lock is held is rejected immediately, never queued.
type locks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newLocks() *locks {
	return &locks{held: map[string]bool{}}
}

func (l *locks) acquire(profile string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[profile] {
		return errors.Newf(errors.ErrCodeConcurrentOperation,
			"another operation is already running for profile %q", profile)
	}
	l.held[profile] = true
	return nil
}

func (l *locks) release(profile string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, profile)
}
