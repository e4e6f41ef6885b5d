package delta

import "testing"

func TestNormalizeCoalescesRetains(t *testing.T) {
	d := Delta{Ops: []Op{Retain(2, nil), Retain(3, nil)}}
	got := Normalize(d)
	want := New(Retain(5, nil))
	if !got.Equal(want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeCoalescesInsertText(t *testing.T) {
	d := Delta{Ops: []Op{InsertText("ab", nil), InsertText("cd", nil)}}
	got := Normalize(d)
	want := New(InsertText("abcd", nil))
	if !got.Equal(want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeDoesNotCoalesceAcrossInsertCode(t *testing.T) {
	d := Delta{Ops: []Op{InsertText("ab", nil), InsertCode(0, nil), InsertText("cd", nil)}}
	got := Normalize(d)
	want := New(InsertText("ab", nil), InsertCode(0, nil), InsertText("cd", nil))
	if !got.Equal(want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeDoesNotCoalesceDifferingAttrs(t *testing.T) {
	bold := Attributes{"bold": BooleanValue(true)}
	d := Delta{Ops: []Op{Retain(2, bold), Retain(3, nil)}}
	got := Normalize(d)
	want := New(Retain(2, bold), Retain(3, nil))
	if !got.Equal(want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeDropsZeroLengthOps(t *testing.T) {
	d := Delta{Ops: []Op{Retain(0, nil), InsertText("x", nil), Delete(0)}}
	got := Normalize(d)
	want := New(InsertText("x", nil))
	if !got.Equal(want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	d := New(Retain(2, nil), Retain(3, nil), InsertText("hi", nil))
	once := Normalize(d)
	twice := Normalize(once)
	if !once.Equal(twice) {
		t.Errorf("Normalize is not idempotent: once=%+v twice=%+v", once, twice)
	}
}
