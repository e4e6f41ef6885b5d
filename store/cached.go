package store

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/collabhq/deltacollab/delta"
)

// dirtyState tracks what needs flushing for a single document. There is no
// separate content-dirty flag: since ApplyOperation composes onto whatever
// the backing store already holds, replaying the un-flushed tail of history
// through the backing store's own ApplyOperation reconstructs its content
// exactly — flushing ops is flushing content.
type dirtyState struct {
	flushedOps int         // number of ops already flushed (index into history)
	created    bool        // doc created locally but not yet in backing store
	initial    delta.Delta // content the doc was created with, when created is set
}

// CachedStore wraps a backing DocumentStore with an in-memory cache.
// Get, ApplyOperation and GetOperations are served from the cache, loading
// from the backing store on a miss; List reads the backing store directly,
// so documents not yet flushed are absent from it. Dirty documents are
// flushed to the backing store periodically in the background.
type CachedStore struct {
	cache         *MemoryStore
	backing       DocumentStore
	mu            sync.Mutex
	dirty         map[string]*dirtyState
	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// NewCachedStore creates a CachedStore that caches in memory and flushes
// dirty documents to the backing store every flushInterval.
func NewCachedStore(backing DocumentStore, flushInterval time.Duration) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		dirty:         make(map[string]*dirtyState),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Create(ctx context.Context, id string, content delta.Delta) error {
	if err := cs.cache.Create(ctx, id, content); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.dirty[id] = &dirtyState{created: true, initial: content}
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	info, err := cs.cache.Get(ctx, id)
	if err == nil {
		return info, nil
	}
	// Cache miss — load from backing store.
	if err := cs.loadFromBacking(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.Get(ctx, id)
}

func (cs *CachedStore) List(ctx context.Context) ([]DocumentInfo, error) {
	return cs.backing.List(ctx)
}

// ApplyOperation composes op onto the cached content (via the cache's own
// ApplyOperation, so the compose invariant is enforced against what's
// actually cached) and marks the document dirty for the next flush cycle.
func (cs *CachedStore) ApplyOperation(ctx context.Context, id string, op delta.Delta) (delta.Delta, int, error) {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return delta.Delta{}, 0, err
	}

	// Snapshot history length before append so we know how many ops were
	// already flushed if this doc was previously clean (removed from dirty map).
	cs.cache.mu.RLock()
	prevLen := len(cs.cache.docs[id].history)
	cs.cache.mu.RUnlock()

	content, version, err := cs.cache.ApplyOperation(ctx, id, op)
	if err != nil {
		return delta.Delta{}, 0, err
	}
	// Mark dirty so flush loop picks up the new op.
	cs.mu.Lock()
	if cs.dirty[id] == nil {
		cs.dirty[id] = &dirtyState{flushedOps: prevLen}
	}
	cs.mu.Unlock()
	return content, version, nil
}

func (cs *CachedStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]delta.Delta, error) {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.GetOperations(ctx, id, fromVersion)
}

// loadFromBacking loads a document and its operations from the backing store
// into the cache. It sets flushedOps so that already-persisted ops are not
// re-flushed.
func (cs *CachedStore) loadFromBacking(ctx context.Context, id string) error {
	info, err := cs.backing.Get(ctx, id)
	if err != nil {
		return err
	}
	ops, err := cs.backing.GetOperations(ctx, id, 0)
	if err != nil {
		return err
	}

	// Write directly into cache's internal map.
	cs.cache.mu.Lock()
	if _, exists := cs.cache.docs[id]; !exists {
		cs.cache.docs[id] = &docRecord{
			info:    *info,
			history: ops,
		}
	}
	cs.cache.mu.Unlock()

	// Set flushedOps so we don't re-flush existing ops.
	cs.mu.Lock()
	if cs.dirty[id] == nil {
		cs.dirty[id] = &dirtyState{flushedOps: len(ops)}
	}
	cs.mu.Unlock()

	return nil
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			cs.flush()
		case <-cs.stop:
			cs.flush()
			return
		}
	}
}

// flush writes all dirty documents to the backing store. A document created
// through this cache is first created in the backing store with the content
// it was created with here, and every un-flushed op is then replayed
// op-by-op through the backing store's own ApplyOperation, so the backing
// store's compose step reconstructs content identical to the cache's —
// there is no separate content write to keep in sync.
func (cs *CachedStore) flush() {
	cs.mu.Lock()
	// Snapshot the dirty map and work on a copy.
	snapshot := make(map[string]*dirtyState, len(cs.dirty))
	for id, ds := range cs.dirty {
		cp := *ds
		snapshot[id] = &cp
	}
	cs.mu.Unlock()

	ctx := context.Background()

	for id, ds := range snapshot {
		// Read current state from cache.
		cs.cache.mu.RLock()
		rec, ok := cs.cache.docs[id]
		if !ok {
			cs.cache.mu.RUnlock()
			continue
		}
		totalOps := len(rec.history)
		// Copy the new ops slice while holding the lock.
		var newOps []delta.Delta
		if ds.flushedOps < totalOps {
			newOps = make([]delta.Delta, totalOps-ds.flushedOps)
			copy(newOps, rec.history[ds.flushedOps:])
		}
		cs.cache.mu.RUnlock()

		// 1. Create doc in backing store if needed.
		if ds.created {
			if err := cs.backing.Create(ctx, id, ds.initial); err != nil {
				log.WithField("docID", id).WithError(err).Error("cached store: failed to create doc in backing store")
				continue
			}
		}

		// 2. Replay new ops through the backing store's own compose step.
		for _, op := range newOps {
			if _, _, err := cs.backing.ApplyOperation(ctx, id, op); err != nil {
				log.WithField("docID", id).WithField("opIndex", ds.flushedOps).WithError(err).
					Error("cached store: failed to flush operation")
				// Stop flushing this doc — will retry next cycle.
				break
			}
			ds.flushedOps++
		}
		ds.created = false

		// Update the authoritative dirty state.
		cs.mu.Lock()
		cur := cs.dirty[id]
		if cur != nil {
			cur.flushedOps = ds.flushedOps
			cur.created = false
			// Remove from dirty map if fully clean.
			cs.cache.mu.RLock()
			if r, ok := cs.cache.docs[id]; ok && cur.flushedOps >= len(r.history) {
				delete(cs.dirty, id)
			}
			cs.cache.mu.RUnlock()
		}
		cs.mu.Unlock()
	}
}

// Close signals the flush loop to perform a final flush and waits for it
// to complete.
func (cs *CachedStore) Close() {
	close(cs.stop)
	<-cs.done
}
