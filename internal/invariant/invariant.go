// Package invariant replaces the original engine's ASSERT(...) calls with
// panics gated behind the Enabled switch, used at the points where a violation
// means a column or facade has an internal bug rather than a bad
// transaction (those are rejected with an error, never asserted).
package invariant

import "fmt"

// Enabled controls whether Check panics or is a no-op. It is a plain
// runtime variable that defaults to true; no build mode changes it.
var Enabled = true

// Check panics with msg if cond is false and invariant checking is
// enabled. Never use this to validate transaction input — only internal
// engine state that should be unreachable if the rest of the code is
// correct.
func Check(cond bool, format string, args ...any) {
	if !Enabled || cond {
		return
	}
	panic(fmt.Sprintf("invariant violated: "+format, args...))
}
