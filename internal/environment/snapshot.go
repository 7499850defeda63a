// Package environment captures the process environment exactly once at
// startup. The bootstrap amends the snapshot with coordination values
// (instance pid, endpoint address) before helpers or hand-off requests read
// it; later changes to the real process environment are never re-read, so
// every consumer sees the same picture.
package environment

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Snapshot is an immutable-after-amendment view of the environment.
type Snapshot struct {
	mu   sync.RWMutex
	vars map[string]string
}

// Capture builds a snapshot from the given "key=value" list, normally
// os.Environ(). Entries without a key are dropped.
func Capture(environ []string) *Snapshot {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			// Windows exposes drive-state entries like "=C:=C:\"; skip them
			continue
		}
		vars[key] = value
	}
	return &Snapshot{vars: vars}
}

// Amend sets key to value, overwriting any captured entry. Amendments are
// expected to finish before the snapshot is shared; the lock only protects
// against a late reader racing the last amendment.
func (s *Snapshot) Amend(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[key] = value
}

// Get returns the value for key and whether it is present.
func (s *Snapshot) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.vars[key]
	return value, ok
}

// Map returns a copy of the snapshot. Mutating the copy does not affect
// the snapshot.
func (s *Snapshot) Map() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Environ renders the snapshot as a sorted "key=value" list suitable for
// exec.Cmd.Env.
func (s *Snapshot) Environ() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.vars))
	for k, v := range s.vars {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}
