package ot

import (
	"github.com/pkg/errors"

	"github.com/collabhq/deltacollab/delta"
)

// Engine abstracts the OT collaboration algorithm. Different algorithms
// (Jupiter, Wave, etc.) implement this interface.
type Engine interface {
	// TransformIncoming transforms a client edit (made at the given
	// revision) against every edit in history since that revision,
	// returning the edit as it should be applied to the current server
	// state.
	TransformIncoming(edit delta.Delta, revision int, history []delta.Delta) (delta.Delta, error)
}

// JupiterEngine implements the Jupiter OT algorithm. It sequentially
// transforms the incoming edit against each server edit the client
// hasn't seen, with server history taking priority on tie-breaks: it was
// applied first.
type JupiterEngine struct{}

func (e *JupiterEngine) TransformIncoming(edit delta.Delta, revision int, history []delta.Delta) (delta.Delta, error) {
	if revision < 0 || revision > len(history) {
		return delta.Delta{}, errors.Errorf("invalid revision %d (history len %d)", revision, len(history))
	}

	transformed := edit
	for i := revision; i < len(history); i++ {
		transformed = delta.Transform(history[i], transformed, true)
	}
	return transformed, nil
}
