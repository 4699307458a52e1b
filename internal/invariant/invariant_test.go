package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDoesNotPanicWhenConditionHolds(t *testing.T) {
	assert.NotPanics(t, func() {
		Check(true, "unreachable: %d", 1)
	})
}

func TestCheckPanicsWithFormattedMessageWhenConditionFails(t *testing.T) {
	assert.PanicsWithValue(t, "invariant violated: bad state: 7", func() {
		Check(false, "bad state: %d", 7)
	})
}

func TestCheckIsNoopWhenDisabled(t *testing.T) {
	Enabled = false
	defer func() { Enabled = true }()

	assert.NotPanics(t, func() {
		Check(false, "should not fire")
	})
}
