package delta

import "testing"

func TestOpLength(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want int
	}{
		{"retain", Retain(5, nil), 5},
		{"insert text", InsertText("hi", nil), 2},
		{"insert code", InsertCode(0x1F600, nil), 1},
		{"delete", Delete(3), 3},
		{"insert text with surrogate pair", InsertText("😀", nil), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.Length(); got != tt.want {
				t.Errorf("Length() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOpIsInsert(t *testing.T) {
	if !InsertText("a", nil).IsInsert() {
		t.Error("InsertText.IsInsert() = false, want true")
	}
	if !InsertCode(1, nil).IsInsert() {
		t.Error("InsertCode.IsInsert() = false, want true")
	}
	if Retain(1, nil).IsInsert() {
		t.Error("Retain.IsInsert() = true, want false")
	}
	if Delete(1).IsInsert() {
		t.Error("Delete.IsInsert() = true, want false")
	}
}

func TestOpEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Op
		want bool
	}{
		{"equal retains", Retain(5, nil), Retain(5, nil), true},
		{"different lengths", Retain(5, nil), Retain(6, nil), false},
		{"different attrs", Retain(5, Attributes{"bold": BooleanValue(true)}), Retain(5, nil), false},
		{"equal inserts", InsertText("ab", nil), InsertText("ab", nil), true},
		{"different text", InsertText("ab", nil), InsertText("ac", nil), false},
		{"different types", Retain(1, nil), Delete(1), false},
		{"equal insert codes", InsertCode(5, nil), InsertCode(5, nil), true},
		{"different insert codes", InsertCode(5, nil), InsertCode(6, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUTF16SliceSplitsSurrogatePairs(t *testing.T) {
	s := "😀" // one rune, two UTF-16 code units
	if got := utf16Slice(s, 0, 1); got == s {
		t.Errorf("expected a split surrogate half, got the whole rune back")
	}
}
