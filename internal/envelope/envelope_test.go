package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

func mustKey(t *testing.T) crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return k
}

func signedEnvelope(t *testing.T, main crypto.PrivateKey, userId crypto.UserId, coSigners []crypto.PrivateKey, payload []byte) *Envelope {
	t.Helper()
	e := &Envelope{
		Type:      TypeUser,
		MainKey:   main.PublicKey(),
		UserId:    userId,
		CoSigners: map[crypto.PublicKey]crypto.Signature{},
	}
	for _, cs := range coSigners {
		e.CoSigners[cs.PublicKey()] = cs.Sign(payload)
	}
	sorted := e.sortedCoSigners()
	table := serializer.New()
	require.NoError(t, encodeCoSignerTable(table, sorted, e.CoSigners))
	fullPayload := append(append([]byte{}, payload...), table.Bytes()...)
	e.MainSignature = main.Sign(fullPayload)
	return e
}

func TestValidateAcceptsWellFormedUserEnvelope(t *testing.T) {
	main := mustKey(t)
	e := &Envelope{Type: TypeUser, MainKey: main.PublicKey(), UserId: crypto.UserIdFromPublicKey(main.PublicKey())}
	assert.NoError(t, e.Validate())
}

func TestValidateRejectsUserEnvelopeWithSponsor(t *testing.T) {
	main := mustKey(t)
	sponsor := mustKey(t)
	e := &Envelope{
		Type:      TypeUser,
		MainKey:   main.PublicKey(),
		UserId:    crypto.UserIdFromPublicKey(main.PublicKey()),
		SponsorId: crypto.UserIdFromPublicKey(sponsor.PublicKey()),
	}
	assert.Error(t, e.Validate())
}

func TestValidateRejectsSponsorEnvelopeWithoutSponsor(t *testing.T) {
	main := mustKey(t)
	e := &Envelope{Type: TypeSponsor, MainKey: main.PublicKey(), UserId: crypto.UserIdFromPublicKey(main.PublicKey())}
	assert.Error(t, e.Validate())
}

func TestValidateRejectsSponsorEqualToUser(t *testing.T) {
	main := mustKey(t)
	userId := crypto.UserIdFromPublicKey(main.PublicKey())
	e := &Envelope{Type: TypeSponsor, MainKey: main.PublicKey(), UserId: userId, SponsorId: userId}
	assert.Error(t, e.Validate())
}

func TestValidateRejectsMainKeyAsCoSigner(t *testing.T) {
	main := mustKey(t)
	e := &Envelope{
		Type:      TypeUser,
		MainKey:   main.PublicKey(),
		UserId:    crypto.UserIdFromPublicKey(main.PublicKey()),
		CoSigners: map[crypto.PublicKey]crypto.Signature{main.PublicKey(): {}},
	}
	assert.Error(t, e.Validate())
}

func TestValidateRejectsTooManyCoSigners(t *testing.T) {
	main := mustKey(t)
	e := &Envelope{
		Type:      TypeUser,
		MainKey:   main.PublicKey(),
		UserId:    crypto.UserIdFromPublicKey(main.PublicKey()),
		CoSigners: map[crypto.PublicKey]crypto.Signature{},
	}
	for i := 0; i < MaxCoSigners+1; i++ {
		e.CoSigners[mustKey(t).PublicKey()] = crypto.Signature{}
	}
	assert.Error(t, e.Validate())
}

func TestVerifySignaturesAcceptsValidEnvelope(t *testing.T) {
	main := mustKey(t)
	cosigner := mustKey(t)
	payload := []byte("block header plus body bytes")
	userId := crypto.UserIdFromPublicKey(main.PublicKey())
	e := signedEnvelope(t, main, userId, []crypto.PrivateKey{cosigner}, payload)

	assert.NoError(t, e.VerifySignatures(payload))
}

func TestVerifySignaturesRejectsTamperedPayload(t *testing.T) {
	main := mustKey(t)
	payload := []byte("original payload")
	userId := crypto.UserIdFromPublicKey(main.PublicKey())
	e := signedEnvelope(t, main, userId, nil, payload)

	err := e.VerifySignatures([]byte("tampered payload"))
	assert.Error(t, err)
}

func TestVerifySignaturesRejectsBadCoSignerSignature(t *testing.T) {
	main := mustKey(t)
	cosigner := mustKey(t)
	payload := []byte("payload")
	userId := crypto.UserIdFromPublicKey(main.PublicKey())
	e := signedEnvelope(t, main, userId, []crypto.PrivateKey{cosigner}, payload)

	for k := range e.CoSigners {
		e.CoSigners[k] = crypto.Signature{}
	}
	assert.Error(t, e.VerifySignatures(payload))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	main := mustKey(t)
	cosigner := mustKey(t)
	payload := []byte("payload")
	userId := crypto.UserIdFromPublicKey(main.PublicKey())
	e := signedEnvelope(t, main, userId, []crypto.PrivateKey{cosigner}, payload)

	s := serializer.New()
	require.NoError(t, e.Serialize(s))

	decoded, err := Deserialize(serializer.NewReader(s.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, e.Type, decoded.Type)
	assert.Equal(t, e.MainKey, decoded.MainKey)
	assert.Equal(t, e.UserId, decoded.UserId)
	assert.Equal(t, e.MainSignature, decoded.MainSignature)
	assert.Equal(t, len(e.CoSigners), len(decoded.CoSigners))
	assert.NoError(t, decoded.VerifySignatures(payload))
}

func TestUsedKeysIncludesMainAndCoSigners(t *testing.T) {
	main := mustKey(t)
	cosigner := mustKey(t)
	e := &Envelope{
		MainKey:   main.PublicKey(),
		CoSigners: map[crypto.PublicKey]crypto.Signature{cosigner.PublicKey(): {}},
	}
	assert.ElementsMatch(t, []crypto.PublicKey{main.PublicKey(), cosigner.PublicKey()}, e.UsedKeys())
}

func TestSizeCountsMainPlusCoSigners(t *testing.T) {
	e := &Envelope{CoSigners: map[crypto.PublicKey]crypto.Signature{
		mustKey(t).PublicKey(): {},
		mustKey(t).PublicKey(): {},
	}}
	assert.Equal(t, 3, e.Size())
}

func TestPayerIdPrefersSponsor(t *testing.T) {
	main := mustKey(t)
	sponsor := mustKey(t)
	userId := crypto.UserIdFromPublicKey(main.PublicKey())
	sponsorId := crypto.UserIdFromPublicKey(sponsor.PublicKey())

	e := &Envelope{Type: TypeSponsor, UserId: userId, SponsorId: sponsorId}
	assert.Equal(t, sponsorId, e.PayerId())

	e = &Envelope{Type: TypeUser, UserId: userId}
	assert.Equal(t, userId, e.PayerId())
}
