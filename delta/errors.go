package delta

import "github.com/pkg/errors"

// ErrIncompatibleDeltas is the one recoverable error this package raises:
// Compose requires a.TargetLength() == b.BaseLength(), and a mismatch is a
// caller error, not a bug in this package. Callers may catch it.
var ErrIncompatibleDeltas = errors.New("delta: incompatible deltas")

// invariantf panics with a wrapped, stack-carrying error. It marks a
// programming error internal to this package — an "unreachable" branch in
// Compose or Transform, or a postcondition violation — never a recoverable
// caller mistake.
func invariantf(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}
