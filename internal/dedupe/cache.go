package dedupe

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RecencyCache is the cheap first layer: a bounded in-memory record of
// recently admitted client order ids. Eviction is oldest-first once full.
// The cache is advisory only and is not persisted; the archive and upstream
// layers compensate after a restart.
type RecencyCache struct {
	cache *lru.Cache[string, time.Time]
}

// NewRecencyCache creates a cache holding at most capacity ids.
func NewRecencyCache(capacity int) (*RecencyCache, error) {
	c, err := lru.New[string, time.Time](capacity)
	if err != nil {
		return nil, err
	}
	return &RecencyCache{cache: c}, nil
}

func (r *RecencyCache) Name() string { return LayerRecencyCache }

// Check is an O(1) membership test. It does not refresh recency: eviction
// order tracks admission order, not lookup order.
func (r *RecencyCache) Check(_ context.Context, clientOrderID string) (bool, error) {
	_, found := r.cache.Peek(clientOrderID)
	return found, nil
}

// Record marks an id as admitted, evicting the oldest entry if full.
func (r *RecencyCache) Record(clientOrderID string) {
	r.cache.Add(clientOrderID, time.Now().UTC())
}

// Len reports the current number of cached ids.
func (r *RecencyCache) Len() int {
	return r.cache.Len()
}
