package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/model"
)

func TestEncodeDecodeSponsorEntryRoundTrip(t *testing.T) {
	var txId crypto.TransactionId
	var sponsored crypto.UserId
	txId[0], sponsored[0] = 4, 6
	entry := model.UserSponsor{BlockId: 21, TransactionId: txId, SponsoredUser: sponsored}

	raw := encodeSponsorEntry(entry)
	decoded, err := decodeSponsorPage(raw)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, entry, decoded[0])
}

func TestUserSponsorCountAndPageKeysAreDistinct(t *testing.T) {
	var sponsor crypto.UserId
	sponsor[0] = 2

	assert.NotEqual(t, userSponsorCountKey(sponsor), userSponsorPageKey(sponsor, 0))
}

func TestAppendStagesSponsorEntry(t *testing.T) {
	c := NewUserSponsorsColumn(nil)
	var sponsor, sponsored crypto.UserId
	sponsor[0], sponsored[0] = 1, 2

	c.Append(sponsor, model.UserSponsor{SponsoredUser: sponsored})

	require.Len(t, c.staged, 1)
	assert.Equal(t, sponsor, c.staged[0].sponsor)
	assert.Equal(t, sponsored, c.staged[0].entry.SponsoredUser)
}
