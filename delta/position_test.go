package delta

import "testing"

func TestTransformPositionInsertBeforeCaret(t *testing.T) {
	d := New(Retain(2, nil), InsertText("xx", nil))
	if got := TransformPosition(d, 5, false); got != 7 {
		t.Errorf("TransformPosition() = %d, want 7", got)
	}
}

func TestTransformPositionInsertAtCaretPriority(t *testing.T) {
	d := New(Retain(2, nil), InsertText("xx", nil))
	// priority=true: the caret (at the insertion point) yields, stays put.
	if got := TransformPosition(d, 2, true); got != 2 {
		t.Errorf("priority=true: TransformPosition() = %d, want 2", got)
	}
	// priority=false: the insertion wins, caret is pushed forward.
	if got := TransformPosition(d, 2, false); got != 4 {
		t.Errorf("priority=false: TransformPosition() = %d, want 4", got)
	}
}

func TestTransformPositionDeleteBeforeCaret(t *testing.T) {
	d := New(Delete(3))
	if got := TransformPosition(d, 5, false); got != 2 {
		t.Errorf("TransformPosition() = %d, want 2", got)
	}
}

func TestTransformPositionDeleteStraddlesCaret(t *testing.T) {
	d := New(Retain(2, nil), Delete(5))
	// caret at 4 sits inside the deleted range [2,7); clips to the start of it.
	if got := TransformPosition(d, 4, false); got != 2 {
		t.Errorf("TransformPosition() = %d, want 2", got)
	}
}

func TestTransformPositionUnaffectedByFarEdit(t *testing.T) {
	d := New(Retain(10, nil), Delete(3))
	if got := TransformPosition(d, 3, false); got != 3 {
		t.Errorf("TransformPosition() = %d, want 3", got)
	}
}
