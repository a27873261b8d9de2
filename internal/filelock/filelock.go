// Package filelock serializes writers to the same file within one process.
package filelock

import (
	"fmt"
	"path/filepath"
	"sync"
)

var (
	mu    sync.Mutex
	locks = make(map[string]*sync.Mutex)
)

func lockFor(key string) *sync.Mutex {
	mu.Lock()
	defer mu.Unlock()

	lock, ok := locks[key]
	if !ok {
		lock = &sync.Mutex{}
		locks[key] = lock
	}
	return lock
}

// Lock acquires the lock for path, keyed by its absolute form, and returns
// the release function. Locks are not reentrant; hold at most one at a time.
func Lock(path string) (func(), error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve lock path %q: %w", path, err)
	}
	lock := lockFor(filepath.Clean(key))
	lock.Lock()
	return lock.Unlock, nil
}

// With runs fn while holding the lock for path.
func With(path string, fn func() error) error {
	unlock, err := Lock(path)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
