package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/deltawire"
)

// documentRow is the gorm model backing the documents table: one row per
// document, holding the latest composed content as deltawire JSON text.
type documentRow struct {
	ID        string `gorm:"primaryKey;size:191"`
	Content   string `gorm:"type:mediumtext"`
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (documentRow) TableName() string { return "documents" }

// operationRow is the append-only log of deltas applied to a document,
// one row per accepted edit.
type operationRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	DocID     string `gorm:"size:191;index:idx_doc_version,priority:1"`
	Version   int    `gorm:"index:idx_doc_version,priority:2"`
	Ops       string `gorm:"type:mediumtext"`
	CreatedAt time.Time
}

func (operationRow) TableName() string { return "operations" }

// SQLStore is a gorm-backed DocumentStore, suitable for MySQL in
// production. Delta bodies are stored as deltawire JSON text in mediumtext
// columns, matching the way FirestoreStore crosses the same wire boundary.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens a MySQL connection via gorm and migrates the schema.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "sql store: open")
	}
	if err := db.AutoMigrate(&documentRow{}, &operationRow{}); err != nil {
		return nil, errors.Wrap(err, "sql store: migrate")
	}
	return &SQLStore{db: db}, nil
}

// NewSQLStore wraps an already-open gorm.DB, for callers that manage their
// own connection pool and migrations.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, id string, content delta.Delta) error {
	body, err := deltawire.Marshal(content)
	if err != nil {
		return errors.Wrap(err, "sql store: marshal content")
	}
	now := time.Now()
	row := &documentRow{
		ID:        id,
		Content:   string(body),
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.Wrapf(err, "sql store: create document %q", id)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	var row documentRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Errorf("document %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return rowToDocInfo(&row)
}

func rowToDocInfo(row *documentRow) (*DocumentInfo, error) {
	content, err := deltawire.Unmarshal([]byte(row.Content))
	if err != nil {
		return nil, errors.Wrapf(err, "sql store: unmarshal content for %q", row.ID)
	}
	return &DocumentInfo{
		ID:        row.ID,
		Content:   content,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *SQLStore) List(ctx context.Context) ([]DocumentInfo, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]DocumentInfo, 0, len(rows))
	for i := range rows {
		info, err := rowToDocInfo(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *info)
	}
	return result, nil
}

// ApplyOperation composes op onto the document's stored content inside a
// single SQL transaction: it locks the document row, enforces the
// BaseLength/TargetLength invariant against what's actually on record,
// composes, and writes the new content row and the operation row together,
// so the two tables never disagree about the document's version.
func (s *SQLStore) ApplyOperation(ctx context.Context, id string, op delta.Delta) (delta.Delta, int, error) {
	var composed delta.Delta
	var version int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Errorf("document %q not found", id)
			}
			return err
		}
		content, err := deltawire.Unmarshal([]byte(row.Content))
		if err != nil {
			return errors.Wrapf(err, "sql store: unmarshal content for %q", id)
		}
		if op.BaseLength() != content.TargetLength() {
			return errors.Errorf(
				"operation base length %d does not match document %q length %d",
				op.BaseLength(), id, content.TargetLength())
		}
		composed, err = delta.Compose(content, op)
		if err != nil {
			return errors.Wrapf(err, "compose operation onto document %q", id)
		}
		version = row.Version + 1

		contentBody, err := deltawire.Marshal(composed)
		if err != nil {
			return errors.Wrap(err, "sql store: marshal content")
		}
		opBody, err := deltawire.Marshal(op)
		if err != nil {
			return errors.Wrap(err, "sql store: marshal operation")
		}

		if err := tx.Model(&documentRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"content":    string(contentBody),
			"version":    version,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return err
		}

		return tx.Create(&operationRow{
			DocID:     id,
			Version:   version,
			Ops:       string(opBody),
			CreatedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return delta.Delta{}, 0, err
	}
	return composed, version, nil
}

func (s *SQLStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]delta.Delta, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&documentRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Errorf("document %q not found", id)
	}

	var rows []operationRow
	err := s.db.WithContext(ctx).
		Where("doc_id = ? AND version > ?", id, fromVersion).
		Order("version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ops := make([]delta.Delta, len(rows))
	for i, row := range rows {
		op, err := deltawire.Unmarshal([]byte(row.Ops))
		if err != nil {
			return nil, errors.Wrapf(err, "sql store: unmarshal operation %d for %q", row.ID, id)
		}
		ops[i] = op
	}
	return ops, nil
}
