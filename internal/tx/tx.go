// Package tx implements the transaction lifecycle described in spec.md
// §4.4: the shared header/envelope/dispatch scaffold and the seventeen
// concrete transaction variants, each supplying validate/execute/cost/
// settings on top of the generic pipeline in validate.go and execute.go.
package tx

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/logpass/node/internal/config"
	"github.com/logpass/node/internal/crypto"
	"github.com/logpass/node/internal/envelope"
	"github.com/logpass/node/internal/serializer"
)

// Type is the one-byte tag every transaction leads with.
type Type uint8

const (
	TypeInit                Type = 0x01
	TypeCreateUser          Type = 0x03
	TypeSponsorUser         Type = 0x04
	TypeUpdateUser          Type = 0x06
	TypeLockUser            Type = 0x0A
	TypeUnlockUser          Type = 0x0B
	TypeLogoutUser          Type = 0x0E
	TypeTransfer            Type = 0x10
	TypeCreateMiner         Type = 0x20
	TypeUpdateMiner         Type = 0x21
	TypeSelectMiner         Type = 0x25
	TypeIncreaseStake       Type = 0x27
	TypeWithdrawStake       Type = 0x28
	TypeStorageCreatePrefix Type = 0x50
	TypeStorageUpdatePrefix Type = 0x51
	TypeStorageAddEntry     Type = 0x55
	TypeCommit              Type = 0x80
)

// Settings are the per-type policy knobs §4.4 declares.
type Settings struct {
	IgnoresLock            bool
	IsBlockchainManagement bool
	IsUserManagement       bool
	FeeMultiplier          uint64
	MinimumPowerLevel      uint8
}

// Body is implemented by every concrete transaction variant.
type Body interface {
	Type() Type
	Settings() Settings
	SerializeBody(w *serializer.Serializer)
	// Cost is the token amount the type's semantics move or burn beyond
	// the fee (0 for most types).
	Cost() uint64
	// ValidateBody runs the type-specific checks layered on top of the
	// generic pipeline (step 9, §4.4).
	ValidateBody(ctx *Context, tx *Transaction) error
	// ExecuteBody runs the type-specific mutation; Execute calls it
	// before the generic execute steps (fee/cost deduction, history).
	ExecuteBody(ctx *Context, tx *Transaction) error
}

// decoders is the factory table load() dispatches through.
var decoders = map[Type]func(s *serializer.Serializer) (Body, error){}

func register(t Type, decode func(s *serializer.Serializer) (Body, error)) {
	decoders[t] = decode
}

// Transaction is the header+body+envelope triple, plus the derived hash
// and id computed by Serialize/Reload.
type Transaction struct {
	BlockId  uint32
	Pricing  int16
	Body     Body
	Envelope *envelope.Envelope

	Hash crypto.Hash
	Id   crypto.TransactionId
}

// Load decodes a wire-format transaction: type byte, blockId, pricing,
// the type-specific body, then the envelope. A missing type is a decode
// error (§4.4).
func Load(s *serializer.Serializer) (*Transaction, error) {
	typeByte, err := s.GetUint8()
	if err != nil {
		return nil, err
	}
	decode, ok := decoders[Type(typeByte)]
	if !ok {
		return nil, errors.Errorf("tx: unknown transaction type 0x%02x", typeByte)
	}
	blockId, err := s.GetUint32BE()
	if err != nil {
		return nil, err
	}
	pricing, err := s.GetInt16()
	if err != nil {
		return nil, err
	}
	body, err := decode(s)
	if err != nil {
		return nil, err
	}
	env, err := envelope.Deserialize(s)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{BlockId: blockId, Pricing: pricing, Body: body, Envelope: env}
	tx.reload()
	return tx, nil
}

// headerAndBody serializes the type byte, header, and body only — the
// payload every signature is computed over.
func (tx *Transaction) headerAndBody() []byte {
	s := serializer.New()
	s.PutUint8(uint8(tx.Body.Type()))
	s.PutUint32BE(tx.BlockId)
	s.PutInt16(tx.Pricing)
	tx.Body.SerializeBody(s)
	return s.Bytes()
}

// Serialize writes the full wire form (header, body, envelope) and
// recomputes Hash/Id from the result, matching the original's
// serialize-then-hash two-phase construction.
func (tx *Transaction) Serialize() ([]byte, error) {
	s := serializer.New()
	s.PutFixed(tx.headerAndBody())
	if err := tx.Envelope.Serialize(s); err != nil {
		return nil, err
	}
	full := s.Bytes()
	tx.reloadFrom(full)
	return full, nil
}

// reload recomputes Hash/Id from the already-decoded fields (used right
// after Load, before the caller has the raw bytes to hand).
func (tx *Transaction) reload() {
	full := tx.headerAndBody()
	s := serializer.New()
	s.PutFixed(full)
	_ = tx.Envelope.Serialize(s)
	tx.reloadFrom(s.Bytes())
}

func (tx *Transaction) reloadFrom(full []byte) {
	tx.Hash = crypto.SumHash(tx.headerAndBody())
	fullHash := crypto.SumHash(full)
	tx.Id = crypto.NewTransactionId(tx.BlockId, uint8(tx.Body.Type()), uint16(len(full)), fullHash)
}

// DuplicationHash is the key used by the replay-rejection window
// (§4.3): hash(transaction-hash ‖ main-public-key ‖ UserId).
func (tx *Transaction) DuplicationHash() crypto.Hash {
	return crypto.SumHash(tx.Hash.Bytes(), tx.Envelope.MainKey.Bytes(), tx.Envelope.UserId.Bytes())
}

// SignedPayload returns the bytes the envelope's signatures are computed
// over (crypto.Verify applies the domain-separation prefix itself).
func (tx *Transaction) SignedPayload() []byte {
	return tx.headerAndBody()
}

// Fee computes the scaled per-block fee for a transaction whose type has
// the given multiplier, at the given pricing (§4.4). The intermediate
// product can exceed a uint64 for a large StorageAddEntry payload at
// high positive pricing, so the scaling runs in 256-bit arithmetic
// before being narrowed back down.
func Fee(cfg config.Config, multiplier uint64, pricing int16) uint64 {
	if pricing == 0 {
		return 0
	}
	base := new(uint256.Int).Mul(uint256.NewInt(cfg.TransactionFee), uint256.NewInt(multiplier))
	var scaled *uint256.Int
	if pricing > 0 {
		scaled = base.Mul(base, uint256.NewInt(20*25))
		scaled = scaled.Div(scaled, uint256.NewInt(uint64(24+pricing)))
	} else {
		scaled = base.Mul(base, uint256.NewInt(25))
		scaled = scaled.Div(scaled, uint256.NewInt(uint64(24-pricing)))
	}
	return scaled.Uint64()
}
