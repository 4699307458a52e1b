package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/serializer"
)

func newTestDefaultColumn(t *testing.T) *DefaultColumn {
	t.Helper()
	return NewDefaultColumn(nil)
}

func TestSetPricingIsVisibleOnUnconfirmedView(t *testing.T) {
	c := newTestDefaultColumn(t)
	c.SetPricing(5)

	assert.Equal(t, int16(5), c.Pricing(false))
	assert.Equal(t, int16(0), c.Pricing(true))
}

func TestMarkCommitSeenFlagsOnlyUnconfirmedState(t *testing.T) {
	c := newTestDefaultColumn(t)
	assert.False(t, c.CommitSeen())

	c.MarkCommitSeen()
	assert.True(t, c.CommitSeen())
	assert.False(t, c.State(true).CommitSeen)
}

func TestClearResetsCommitSeenButKeepsConfirmedPricing(t *testing.T) {
	c := newTestDefaultColumn(t)
	c.SetPricing(3)
	c.Commit()
	c.SetPricing(9)
	c.MarkCommitSeen()

	c.Clear()

	assert.False(t, c.CommitSeen())
	assert.Equal(t, int16(3), c.Pricing(false))
}

func TestEncodeDecodeDefaultStateRoundTrip(t *testing.T) {
	st := DefaultState{Version: 1, BlockId: 42, Pricing: -7, CommitSeen: true}

	s := serializer.New()
	st.Serialize(s)
	decoded, err := decodeDefaultState(serializer.NewReader(s.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, st, decoded)
}
