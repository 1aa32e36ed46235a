// Package plancache bounds and serves precomputed learning-path plans.
//
// Entries are keyed by learner and canonical constraint key. Grading or
// completing a unit can change any of a learner's plans, so invalidation
// always removes every constraint variant for that learner. Presence is
// never required for correctness: a miss is recomputed by the planner.
package plancache

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one cached plan: the ranked unit IDs computed for a
// learner/constraint pair, and when they were computed.
type Entry struct {
	UnitIDs    []uuid.UUID
	ComputedAt time.Time
}

// Cache stores computed plans per learner and constraint key.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached entry for the learner/constraint pair.
	// Between writes, repeated gets return the same entry.
	Get(learnerID uuid.UUID, constraintKey string) (*Entry, bool)

	// Put stores an entry, replacing any previous one for the same pair.
	Put(learnerID uuid.UUID, constraintKey string, entry *Entry)

	// Invalidate removes every constraint variant cached for the learner and
	// returns how many entries were removed. Invalidating a learner with no
	// entries is a no-op.
	Invalidate(learnerID uuid.UUID) int

	// Len returns the number of cached entries across all learners.
	Len() int
}

// cacheKey identifies one cached plan.
type cacheKey struct {
	learnerID     uuid.UUID
	constraintKey string
}

// LRUCache is a Cache with a process-wide upper bound on total entries,
// evicting least-recently-used plans once full. A per-learner key index
// makes Invalidate proportional to the learner's entry count rather than
// the cache size; a single mutex keeps the index and the LRU coherent.
type LRUCache struct {
	mu        sync.Mutex
	entries   *lru.Cache[cacheKey, *Entry]
	byLearner map[uuid.UUID]map[string]struct{}
}

var _ Cache = (*LRUCache)(nil)

// NewLRUCache creates a cache bounded at maxEntries total plans.
func NewLRUCache(maxEntries int) (*LRUCache, error) {
	c := &LRUCache{
		byLearner: make(map[uuid.UUID]map[string]struct{}),
	}

	// The eviction callback fires under c.mu for every removal path
	// (capacity eviction inside Put, explicit removal inside Invalidate),
	// so it may touch the index without further locking.
	entries, err := lru.NewWithEvict[cacheKey, *Entry](maxEntries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.entries = entries

	return c, nil
}

// onEvict drops the evicted key from the per-learner index.
func (c *LRUCache) onEvict(key cacheKey, _ *Entry) {
	keys := c.byLearner[key.learnerID]
	if keys == nil {
		return
	}
	delete(keys, key.constraintKey)
	if len(keys) == 0 {
		delete(c.byLearner, key.learnerID)
	}
}

// Get returns the cached entry for the learner/constraint pair, marking it
// recently used.
func (c *LRUCache) Get(learnerID uuid.UUID, constraintKey string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Get(cacheKey{learnerID: learnerID, constraintKey: constraintKey})
}

// Put stores an entry for the learner/constraint pair, replacing any
// previous one and evicting the least-recently-used plan when full.
func (c *LRUCache) Put(learnerID uuid.UUID, constraintKey string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Index before Add: a capacity eviction inside Add only ever removes an
	// older entry, never the one being inserted.
	keys := c.byLearner[learnerID]
	if keys == nil {
		keys = make(map[string]struct{})
		c.byLearner[learnerID] = keys
	}
	keys[constraintKey] = struct{}{}

	c.entries.Add(cacheKey{learnerID: learnerID, constraintKey: constraintKey}, entry)
}

// Invalidate removes every cached plan for the learner, returning the count
// removed. Safe to call repeatedly; once it returns, gets for the learner
// miss until the next Put.
func (c *LRUCache) Invalidate(learnerID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byLearner[learnerID]
	if len(keys) == 0 {
		return 0
	}

	// Removal mutates the index through onEvict, so snapshot the keys first.
	constraintKeys := make([]string, 0, len(keys))
	for key := range keys {
		constraintKeys = append(constraintKeys, key)
	}

	removed := 0
	for _, key := range constraintKeys {
		if c.entries.Remove(cacheKey{learnerID: learnerID, constraintKey: key}) {
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries across all learners.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries.Len()
}
