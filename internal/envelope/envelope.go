// Package envelope implements the multi-signature authentication wrapper
// carried by every transaction: one main key, up to ten co-signers, and
// an optional sponsor whose balance pays the transaction's fee.
package envelope

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/serializer"
)

type Type uint8

const (
	TypeUser   Type = 0
	TypeSponsor Type = 1
)

const MaxCoSigners = 10

// Envelope is the authenticated wrapper around a transaction's signed
// payload (header+body): a main key, the resolved user id, an optional
// sponsor, a bounded set of co-signer signatures, and the main signature
// covering everything else.
type Envelope struct {
	Type      Type
	MainKey   crypto.PublicKey
	UserId    crypto.UserId
	SponsorId crypto.UserId // valid only when Type == TypeSponsor

	CoSigners map[crypto.PublicKey]crypto.Signature

	MainSignature crypto.Signature
}

func (e *Envelope) GetType() Type              { return e.Type }
func (e *Envelope) GetSponsorId() crypto.UserId { return e.SponsorId }
func (e *Envelope) Size() int                  { return len(e.CoSigners) + 1 }

// PayerId returns the sponsor when present, else the user.
func (e *Envelope) PayerId() crypto.UserId {
	if e.Type == TypeSponsor {
		return e.SponsorId
	}
	return e.UserId
}

// UsedKeys returns every public key that signed: the main key plus all
// co-signers.
func (e *Envelope) UsedKeys() []crypto.PublicKey {
	keys := make([]crypto.PublicKey, 0, len(e.CoSigners)+1)
	keys = append(keys, e.MainKey)
	for k := range e.CoSigners {
		keys = append(keys, k)
	}
	return keys
}

// Validate enforces the structural constraints from §4.3: envelope type
// is USER (no sponsor) or SPONSOR (sponsor != user); main key type is
// Ed25519; main key is not itself a co-signer; userId != sponsorId;
// co-signer set bounded.
func (e *Envelope) Validate() error {
	if !e.MainKey.IsValid() {
		return errors.New("envelope: invalid main key")
	}
	if len(e.CoSigners) > MaxCoSigners {
		return errors.Errorf("envelope: too many co-signers: %d", len(e.CoSigners))
	}
	if _, ok := e.CoSigners[e.MainKey]; ok {
		return errors.New("envelope: main key can not also be a co-signer")
	}
	switch e.Type {
	case TypeUser:
		if e.SponsorId.IsValid() {
			return errors.New("envelope: USER envelope must not carry a sponsor")
		}
	case TypeSponsor:
		if !e.SponsorId.IsValid() {
			return errors.New("envelope: SPONSOR envelope requires a sponsor")
		}
		if e.SponsorId == e.UserId {
			return errors.New("envelope: sponsor can not equal user")
		}
	default:
		return errors.Errorf("envelope: unknown envelope type %d", e.Type)
	}
	return nil
}

// VerifySignatures checks every co-signer's signature over payload, then
// the main signature over payload followed by the co-signer table, in
// the canonical (sorted) order used for serialization.
func (e *Envelope) VerifySignatures(payload []byte) error {
	sorted := e.sortedCoSigners()
	for _, pk := range sorted {
		sig := e.CoSigners[pk]
		if !crypto.Verify(pk, payload, sig) {
			return errors.Errorf("envelope: invalid co-signer signature for key %s", pk.String())
		}
	}
	table := serializer.New()
	if err := encodeCoSignerTable(table, sorted, e.CoSigners); err != nil {
		return err
	}
	fullPayload := append(append([]byte{}, payload...), table.Bytes()...)
	if !crypto.Verify(e.MainKey, fullPayload, e.MainSignature) {
		return errors.New("envelope: invalid main signature")
	}
	return nil
}

func (e *Envelope) sortedCoSigners() []crypto.PublicKey {
	keys := make([]crypto.PublicKey, 0, len(e.CoSigners))
	for k := range e.CoSigners {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func encodeCoSignerTable(s *serializer.Serializer, sorted []crypto.PublicKey, sigs map[crypto.PublicKey]crypto.Signature) error {
	if err := s.PutUint8Count(len(sorted)); err != nil {
		return err
	}
	for _, k := range sorted {
		s.PutFixed(k.Bytes())
		s.PutFixed(sigs[k].Bytes())
	}
	return nil
}

// Serialize writes the wire form: type, main key, userId, optional
// sponsorId, the co-signer table, then the main signature.
func (e *Envelope) Serialize(s *serializer.Serializer) error {
	s.PutUint8(uint8(e.Type))
	s.PutFixed(e.MainKey.Bytes())
	s.PutFixed(e.UserId.Bytes())
	if e.Type == TypeSponsor {
		s.PutFixed(e.SponsorId.Bytes())
	}
	sorted := e.sortedCoSigners()
	if err := encodeCoSignerTable(s, sorted, e.CoSigners); err != nil {
		return err
	}
	s.PutFixed(e.MainSignature.Bytes())
	return nil
}

// Deserialize reads an envelope in the format written by Serialize.
func Deserialize(s *serializer.Serializer) (*Envelope, error) {
	typeByte, err := s.GetUint8()
	if err != nil {
		return nil, err
	}
	e := &Envelope{Type: Type(typeByte), CoSigners: map[crypto.PublicKey]crypto.Signature{}}

	mk, err := s.GetFixed(crypto.PublicKeySize)
	if err != nil {
		return nil, err
	}
	copy(e.MainKey[:], mk)

	uid, err := s.GetFixed(crypto.UserIdSize)
	if err != nil {
		return nil, err
	}
	copy(e.UserId[:], uid)

	if e.Type == TypeSponsor {
		sid, err := s.GetFixed(crypto.UserIdSize)
		if err != nil {
			return nil, err
		}
		copy(e.SponsorId[:], sid)
	}

	count, err := s.GetUint8Count()
	if err != nil {
		return nil, err
	}
	if count > MaxCoSigners {
		return nil, errors.Errorf("envelope: co-signer count %d exceeds maximum", count)
	}
	for i := 0; i < count; i++ {
		kb, err := s.GetFixed(crypto.PublicKeySize)
		if err != nil {
			return nil, err
		}
		sb, err := s.GetFixed(crypto.SignatureSize)
		if err != nil {
			return nil, err
		}
		var pk crypto.PublicKey
		var sig crypto.Signature
		copy(pk[:], kb)
		copy(sig[:], sb)
		e.CoSigners[pk] = sig
	}

	sig, err := s.GetFixed(crypto.SignatureSize)
	if err != nil {
		return nil, err
	}
	copy(e.MainSignature[:], sig)

	return e, nil
}
