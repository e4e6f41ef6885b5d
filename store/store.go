package store

import (
	"context"
	"time"

	"github.com/collabhq/deltacollab/delta"
)

// DocumentInfo holds document metadata and content. Content is always a
// Document-shaped Delta (insert-only, BaseLength 0).
type DocumentInfo struct {
	ID        string
	Content   delta.Delta
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentStore abstracts document persistence. Implementations: MemoryStore
// (dev/tests), CachedStore (write-behind over any other implementation),
// FirestoreStore, SQLStore.
//
// ApplyOperation is the sole mutation path for an accepted edit: the store
// composes op onto the document's current content itself via delta.Compose
// rather than trusting a precomputed content blob from the caller, so the
// BaseLength/TargetLength invariant is enforced at the persistence boundary
// and content can never drift out of sync with the operation log that
// produced it.
type DocumentStore interface {
	Create(ctx context.Context, id string, content delta.Delta) error
	Get(ctx context.Context, id string) (*DocumentInfo, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	ApplyOperation(ctx context.Context, id string, op delta.Delta) (content delta.Delta, version int, err error)
	GetOperations(ctx context.Context, id string, fromVersion int) ([]delta.Delta, error)
}
