// Copyright (C) 2025 Goodspeed Apps
//
// This file is part of statusclaw-a2a.
//
// statusclaw-a2a is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// statusclaw-a2a is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with statusclaw-a2a.  If not, see <https://www.gnu.org/licenses/>.

package nonce

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a (sender, nonce) pair is remembered. Messages
// older than the acceptance window cannot be replayed anyway, so entries
// past it only cost memory.
const DefaultTTL = 10 * time.Minute

// Cache is a time-bounded set of (sender, nonce) pairs. Each pair may be
// recorded exactly once; a second attempt is a replay.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the retention window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty nonce cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:  DefaultTTL,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(agentID, nonce string) string {
	return agentID + "\x00" + nonce
}

// CheckAndRecord atomically checks whether (agentID, nonce) has been seen
// and records it if not. Returns false on a replay. Atomicity here is the
// critical section that keeps two parallel deliveries of the same message
// from both passing.
func (c *Cache) CheckAndRecord(agentID, nonce string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(now)

	k := key(agentID, nonce)
	if _, exists := c.seen[k]; exists {
		return false
	}
	c.seen[k] = now
	return true
}

// Seen reports whether (agentID, nonce) is currently recorded, without
// recording it.
func (c *Cache) Seen(agentID, nonce string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	_, exists := c.seen[key(agentID, nonce)]
	return exists
}

// Clear discards all recorded nonces. First-class reset for test harnesses.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]time.Time)
}

// Len returns the number of currently retained pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	return len(c.seen)
}

// prune drops entries older than the TTL. Caller holds c.mu.
func (c *Cache) prune(now time.Time) {
	cutoff := now.Add(-c.ttl)
	for k, ts := range c.seen {
		if ts.Before(cutoff) {
			delete(c.seen, k)
		}
	}
}
