package delta

import "testing"

func TestDeltaLengths(t *testing.T) {
	d := New(Retain(2, nil), InsertText("x", nil), Delete(1), Retain(3, nil))
	if got := d.BaseLength(); got != 6 {
		t.Errorf("BaseLength() = %d, want 6", got)
	}
	if got := d.TargetLength(); got != 6 {
		t.Errorf("TargetLength() = %d, want 6", got)
	}
}

func TestDeltaIsDocument(t *testing.T) {
	doc := New(InsertText("hello", nil))
	if !doc.IsDocument() {
		t.Error("insert-only delta should be a Document")
	}
	edit := New(Retain(1, nil), InsertText("x", nil))
	if edit.IsDocument() {
		t.Error("delta with a Retain should not be a Document")
	}
}

func TestDeltaAppendSkipsZeroLength(t *testing.T) {
	d := New(Retain(1, nil)).Append(Retain(0, nil)).Append(Delete(2))
	want := New(Retain(1, nil), Delete(2))
	if !d.Equal(want) {
		t.Errorf("Append() = %+v, want %+v", d, want)
	}
}

func TestDeltaPrepend(t *testing.T) {
	d := New(Retain(1, nil)).Prepend(InsertText("x", nil))
	want := New(InsertText("x", nil), Retain(1, nil))
	if !d.Equal(want) {
		t.Errorf("Prepend() = %+v, want %+v", d, want)
	}
}

func TestDeltaEqual(t *testing.T) {
	a := New(Retain(1, nil), InsertText("x", nil))
	b := New(Retain(1, nil), InsertText("x", nil))
	c := New(Retain(1, nil), InsertText("y", nil))
	if !a.Equal(b) {
		t.Error("expected a.Equal(b)")
	}
	if a.Equal(c) {
		t.Error("expected !a.Equal(c)")
	}
}

func TestDeltaAppendDoesNotMutateOriginal(t *testing.T) {
	a := New(Retain(1, nil))
	b := a.Append(Delete(1))
	if len(a.Ops) != 1 {
		t.Errorf("Append mutated the receiver: len(a.Ops) = %d, want 1", len(a.Ops))
	}
	if len(b.Ops) != 2 {
		t.Errorf("len(b.Ops) = %d, want 2", len(b.Ops))
	}
}
