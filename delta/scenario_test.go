package delta

import "testing"

// TestMultiStepComposeThenTransform folds three sequential server edits
// left-to-right with Compose, then transforms a concurrent client edit
// against the fold. Applying the client edit after the folded server
// edits must reach the same document as applying the folded server edits
// (transformed against the client edit) after the client edit.
func TestMultiStepComposeThenTransform(t *testing.T) {
	doc := New(InsertText("The quick brown fox jumps over the lazy dog!!!!!", nil)) // 48 chars

	step1 := New(Retain(4, nil), Delete(5), InsertText("slow", nil), Retain(39, nil))
	step2 := New(Retain(8, nil), Delete(6), InsertText("purple", nil), Retain(33, nil))
	step3 := New(Retain(46, nil), Delete(1))

	serverFold := mustComposeDelta(t, step1, step2)
	serverFold = mustComposeDelta(t, serverFold, step3)

	client := New(Retain(48, nil), InsertText("?", nil))

	xfClient := Transform(serverFold, client, false)
	xfServer := Transform(client, serverFold, true)

	serverThenClient := mustComposeDelta(t, doc, mustComposeDelta(t, serverFold, xfClient))
	clientThenServer := mustComposeDelta(t, doc, mustComposeDelta(t, client, xfServer))

	if !serverThenClient.Equal(clientThenServer) {
		t.Errorf("server-first and client-first merges diverge:\n  server-first = %+v\n  client-first = %+v",
			serverThenClient, clientThenServer)
	}
}

func TestComposeLengthChaining(t *testing.T) {
	a := New(Retain(3, nil), InsertText("xy", nil), Delete(2))
	b := New(Retain(2, nil), Delete(2), Retain(1, nil))
	if a.TargetLength() != b.BaseLength() {
		t.Fatalf("fixture invalid: a.TargetLength()=%d b.BaseLength()=%d", a.TargetLength(), b.BaseLength())
	}
	got := mustComposeDelta(t, a, b)
	if got.BaseLength() != a.BaseLength() {
		t.Errorf("Compose(a,b).BaseLength() = %d, want %d", got.BaseLength(), a.BaseLength())
	}
	if got.TargetLength() != b.TargetLength() {
		t.Errorf("Compose(a,b).TargetLength() = %d, want %d", got.TargetLength(), b.TargetLength())
	}
}

func TestComposeIdentityViaRetain(t *testing.T) {
	doc := New(InsertText("unchanged", nil))
	identity := New(Retain(9, nil))
	got := mustComposeDelta(t, doc, identity)
	if !got.Equal(doc) {
		t.Errorf("Compose(doc, identity) = %+v, want %+v", got, doc)
	}
}
