package subscription

import (
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/parlohq/parlo-api/internal/domain/quota"
)

// snapshotHolder serves the most recently assembled snapshot to a user's
// gate. The gate reads synchronously and never performs I/O, so the service
// refreshes the holder before every check.
type snapshotHolder struct {
	mu   sync.RWMutex
	snap quota.Snapshot
	ok   bool
}

var _ quota.Source = (*snapshotHolder)(nil)

// Snapshot returns the held snapshot by value. Before the first refresh it
// reports false, which the gate treats as zero remaining.
func (h *snapshotHolder) Snapshot() (quota.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap, h.ok
}

func (h *snapshotHolder) set(snap quota.Snapshot) {
	h.mu.Lock()
	h.snap = snap
	h.ok = true
	h.mu.Unlock()
}

// gateEntry pairs a user's gate with the holder its decisions read from.
type gateEntry struct {
	gate   *quota.Gate
	holder *snapshotHolder
}

// gateRegistry keeps one gate per user, capped by an LRU so an unbounded
// user population cannot grow memory without limit. Evicting an entry loses
// only blocking-prompt display state; usage counts live in storage.
type gateRegistry struct {
	mu    sync.Mutex
	cache *lru.Cache[uuid.UUID, *gateEntry]
	build func(userID uuid.UUID) *gateEntry
}

func newGateRegistry(size int, build func(userID uuid.UUID) *gateEntry) (*gateRegistry, error) {
	cache, err := lru.New[uuid.UUID, *gateEntry](size)
	if err != nil {
		return nil, err
	}
	return &gateRegistry{cache: cache, build: build}, nil
}

// entryFor returns the user's gate entry, creating it on first use. The
// lock makes get-or-create atomic so concurrent requests for a new user
// share one gate instead of racing to build two.
func (r *gateRegistry) entryFor(userID uuid.UUID) *gateEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.cache.Get(userID); ok {
		return entry
	}

	entry := r.build(userID)
	r.cache.Add(userID, entry)
	return entry
}

// len reports how many gates are currently held.
func (r *gateRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
