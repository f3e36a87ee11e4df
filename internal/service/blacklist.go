package service

import (
	"sync"
	"time"
)

// Blacklist is a process-local set of revoked access-token ids (jti).
// Presence of an id means the bearer token is rejected even while
// cryptographically valid.  The set lives for the process lifetime and
// is cleared in bulk rather than per entry; that is acceptable only
// because access tokens are short-lived.  In a multi-instance
// deployment an id blacklisted here stays valid on other instances
// until their own cleanup or restart — cluster-wide revocation needs a
// shared TTL-capable store instead.
type Blacklist struct {
	mu        sync.RWMutex
	ids       map[string]struct{}
	lastReset time.Time
}

func NewBlacklist() *Blacklist {
	return &Blacklist{ids: make(map[string]struct{}), lastReset: time.Now().UTC()}
}

// Add records a token id.  Empty ids are ignored.
func (b *Blacklist) Add(id string) {
	if id == "" {
		return
	}
	b.mu.Lock()
	b.ids[id] = struct{}{}
	b.mu.Unlock()
}

// Contains reports whether a token id has been revoked.
func (b *Blacklist) Contains(id string) bool {
	b.mu.RLock()
	_, ok := b.ids[id]
	b.mu.RUnlock()
	return ok
}

// Cleanup clears the entire set when the last reset is older than
// maxAge.  It returns how many entries were dropped.
func (b *Blacklist) Cleanup(maxAge time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Since(b.lastReset) < maxAge {
		return 0
	}
	n := len(b.ids)
	b.ids = make(map[string]struct{})
	b.lastReset = time.Now().UTC()
	return n
}

// Len reports the current number of blacklisted ids.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}
