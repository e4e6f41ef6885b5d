package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/deltawire"
)

// FirestoreStore is a Firestore-backed implementation of DocumentStore.
// Delta content is stored as deltawire JSON text: Firestore's map value
// type cannot represent the Op tagged union directly, so every document
// and operation round-trips through the wire boundary on the way in and
// out.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a new FirestoreStore using the given Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: "documents",
	}
}

func (s *FirestoreStore) docRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *FirestoreStore) opsCollection(docID string) *firestore.CollectionRef {
	return s.docRef(docID).Collection("operations")
}

func (s *FirestoreStore) Create(ctx context.Context, id string, content delta.Delta) error {
	body, err := deltawire.Marshal(content)
	if err != nil {
		return errors.Wrap(err, "firestore store: marshal content")
	}
	now := time.Now()
	_, err = s.docRef(id).Create(ctx, map[string]interface{}{
		"content":   string(body),
		"version":   0,
		"createdAt": now,
		"updatedAt": now,
	})
	if status.Code(err) == codes.AlreadyExists {
		return errors.Errorf("document %q already exists", id)
	}
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	snap, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, errors.Errorf("document %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return snapshotToDocInfo(id, snap)
}

func snapshotToDocInfo(id string, snap *firestore.DocumentSnapshot) (*DocumentInfo, error) {
	data := snap.Data()
	contentJSON, _ := data["content"].(string)
	version, _ := data["version"].(int64)
	createdAt, _ := data["createdAt"].(time.Time)
	updatedAt, _ := data["updatedAt"].(time.Time)

	content, err := deltawire.Unmarshal([]byte(contentJSON))
	if err != nil {
		return nil, errors.Wrapf(err, "firestore store: unmarshal content for %q", id)
	}
	return &DocumentInfo{
		ID:        id,
		Content:   content,
		Version:   int(version),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]DocumentInfo, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var result []DocumentInfo
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		info, err := snapshotToDocInfo(snap.Ref.ID, snap)
		if err != nil {
			return nil, err
		}
		result = append(result, *info)
	}
	return result, nil
}

// ApplyOperation composes op onto the document's stored content inside a
// Firestore transaction: it reads the current content, enforces the
// BaseLength/TargetLength invariant, composes, and writes both the new
// content and the operation record atomically, so a concurrent reader never
// observes an operation log entry without the content it produced (or vice
// versa).
func (s *FirestoreStore) ApplyOperation(ctx context.Context, id string, op delta.Delta) (delta.Delta, int, error) {
	var composed delta.Delta
	var version int

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.docRef(id))
		if status.Code(err) == codes.NotFound {
			return errors.Errorf("document %q not found", id)
		}
		if err != nil {
			return err
		}
		info, err := snapshotToDocInfo(id, snap)
		if err != nil {
			return err
		}
		if op.BaseLength() != info.Content.TargetLength() {
			return errors.Errorf(
				"operation base length %d does not match document %q length %d",
				op.BaseLength(), id, info.Content.TargetLength())
		}
		composed, err = delta.Compose(info.Content, op)
		if err != nil {
			return errors.Wrapf(err, "compose operation onto document %q", id)
		}
		version = info.Version + 1

		contentBody, err := deltawire.Marshal(composed)
		if err != nil {
			return errors.Wrap(err, "firestore store: marshal content")
		}
		opBody, err := deltawire.Marshal(op)
		if err != nil {
			return errors.Wrap(err, "firestore store: marshal operation")
		}

		if err := tx.Update(s.docRef(id), []firestore.Update{
			{Path: "content", Value: string(contentBody)},
			{Path: "version", Value: version},
			{Path: "updatedAt", Value: time.Now()},
		}); err != nil {
			return err
		}

		// Store with 0-based index: version 1 → index 0, matching
		// MemoryStore's history slice semantics where GetOperations
		// (fromVersion) returns history[fromVersion:].
		return tx.Set(s.opsCollection(id).Doc(opIndexKey(version-1)), map[string]interface{}{
			"ops":     string(opBody),
			"version": version,
		})
	})
	if err != nil {
		return delta.Delta{}, 0, err
	}
	return composed, version, nil
}

func (s *FirestoreStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]delta.Delta, error) {
	// Verify document exists.
	_, err := s.docRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, errors.Errorf("document %q not found", id)
	}
	if err != nil {
		return nil, err
	}

	iter := s.opsCollection(id).
		OrderBy(firestore.DocumentID, firestore.Asc).
		StartAt(opIndexKey(fromVersion)).
		Documents(ctx)
	defer iter.Stop()

	var ops []delta.Delta
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		op, err := snapshotToOperation(snap)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func snapshotToOperation(snap *firestore.DocumentSnapshot) (delta.Delta, error) {
	data := snap.Data()
	body, ok := data["ops"].(string)
	if !ok {
		return delta.Delta{}, errors.Errorf("invalid ops field in operation %s", snap.Ref.ID)
	}
	op, err := deltawire.Unmarshal([]byte(body))
	if err != nil {
		return delta.Delta{}, errors.Wrapf(err, "unmarshal operation %s", snap.Ref.ID)
	}
	return op, nil
}

// opIndexKey zero-pads a version index so lexicographic document-ID
// ordering in Firestore matches numeric ordering.
func opIndexKey(index int) string {
	return fmt.Sprintf("%010d", index)
}
