package store

import (
	"context"
	"testing"

	"github.com/collabhq/deltacollab/delta"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	hello := delta.New(delta.InsertText("hello", nil))
	if err := s.Create(ctx, "doc1", hello); err != nil {
		t.Fatal(err)
	}

	info, err := s.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if !info.Content.Equal(hello) || info.Version != 0 || info.ID != "doc1" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Create(ctx, "doc1", delta.Delta{})
	if err := s.Create(ctx, "doc1", delta.Delta{}); err == nil {
		t.Error("expected error for duplicate create")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	if err == nil {
		t.Error("expected error for missing document")
	}
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Create(ctx, "a", delta.Delta{})
	s.Create(ctx, "b", delta.Delta{})
	s.Create(ctx, "c", delta.Delta{})

	docs, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Errorf("got %d docs, want 3", len(docs))
	}
}

func TestMemoryStore_ApplyOperationComposes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Create(ctx, "doc1", delta.New(delta.InsertText("hello", nil)))
	op := delta.New(delta.Retain(5, nil), delta.InsertText(" world", nil))

	content, version, err := s.ApplyOperation(ctx, "doc1", op)
	if err != nil {
		t.Fatal(err)
	}
	want := delta.New(delta.InsertText("hello world", nil))
	if !content.Equal(want) || version != 1 {
		t.Errorf("unexpected: content=%+v version=%d", content, version)
	}

	info, _ := s.Get(ctx, "doc1")
	if !info.Content.Equal(want) || info.Version != 1 {
		t.Errorf("unexpected stored state: content=%+v version=%d", info.Content, info.Version)
	}
}

func TestMemoryStore_ApplyOperationNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.ApplyOperation(context.Background(), "nope", delta.New(delta.InsertText("x", nil)))
	if err == nil {
		t.Error("expected error for missing document")
	}
}

func TestMemoryStore_ApplyOperationLengthMismatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Create(ctx, "doc1", delta.New(delta.InsertText("hello", nil)))
	// Retains 99 characters against a 5-character document.
	badOp := delta.New(delta.Retain(99, nil))
	if _, _, err := s.ApplyOperation(ctx, "doc1", badOp); err == nil {
		t.Error("expected error for base-length mismatch")
	}
}

func TestMemoryStore_Operations(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Create(ctx, "doc1", delta.New(delta.InsertText("hello", nil)))

	op1 := delta.New(delta.Retain(5, nil), delta.InsertText(" world", nil))
	if _, _, err := s.ApplyOperation(ctx, "doc1", op1); err != nil {
		t.Fatal(err)
	}

	op2 := delta.New(delta.Delete(5), delta.Retain(6, nil))
	if _, _, err := s.ApplyOperation(ctx, "doc1", op2); err != nil {
		t.Fatal(err)
	}

	// Get all ops
	ops, err := s.GetOperations(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}

	// Get ops from version 1
	ops, err = s.GetOperations(ctx, "doc1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(ops))
	}
}

func TestMemoryStore_OperationsNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetOperations(context.Background(), "nope", 0)
	if err == nil {
		t.Error("expected error for missing document")
	}
}
