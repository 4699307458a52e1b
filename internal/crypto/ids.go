// Package crypto wraps Ed25519 signing and SHA-256 hashing behind the
// fixed-size typed byte arrays the rest of the engine passes around:
// Hash, PublicKey, Signature, UserId, MinerId and TransactionId. The
// signing/verification primitives themselves are treated as a black box
// (spec.md §1) — this package is the thin Go binding over
// golang.org/x/crypto/ed25519 and crypto/sha256, not a reimplementation.
package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
)

// PublicKeyTypeEd25519 is the one-byte type tag prefixed to a PublicKey.
const PublicKeyTypeEd25519 = 0x01

const (
	HashSize          = 32
	PublicKeySize     = 33 // 1 type byte + 32 raw Ed25519 bytes
	SignatureSize     = 64
	UserIdSize        = 32
	MinerIdSize       = 32
	TransactionIdSize = 39 // 4 blockId + 1 type + 2 size + 32 hash
)

// Hash is a SHA-256 digest.
type Hash [HashSize]byte

func SumHash(b ...[]byte) Hash {
	h := sha256.New()
	for _, part := range b {
		h.Write(part)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func (h Hash) IsValid() bool    { return h != Hash{} }
func (h Hash) Bytes() []byte    { return h[:] }
func (h Hash) String() string   { return base64.RawURLEncoding.EncodeToString(h[:]) }
func (h Hash) Less(o Hash) bool { return bytes.Compare(h[:], o[:]) < 0 }

func HashFromString(s string) (Hash, error) {
	var h Hash
	b, err := decodeBase64url(s, HashSize)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// PublicKey is a 1-byte type tag followed by 32 raw Ed25519 bytes.
type PublicKey [PublicKeySize]byte

func (p PublicKey) IsValid() bool  { return p != PublicKey{} && p[0] == PublicKeyTypeEd25519 }
func (p PublicKey) Bytes() []byte  { return p[:] }
func (p PublicKey) String() string { return base64.RawURLEncoding.EncodeToString(p[:]) }
func (p PublicKey) Less(o PublicKey) bool {
	return bytes.Compare(p[:], o[:]) < 0
}

func PublicKeyFromString(s string) (PublicKey, error) {
	var p PublicKey
	b, err := decodeBase64url(s, PublicKeySize)
	if err != nil {
		return p, err
	}
	copy(p[:], b)
	return p, nil
}

// UserId identifies a user: SHA-256 of the full 33-byte public key.
type UserId [UserIdSize]byte

func UserIdFromPublicKey(pk PublicKey) UserId {
	h := SumHash(pk[:])
	var id UserId
	copy(id[:], h[:])
	return id
}

func (u UserId) IsValid() bool  { return u != UserId{} }
func (u UserId) Bytes() []byte  { return u[:] }
func (u UserId) String() string { return base64.RawURLEncoding.EncodeToString(u[:]) }
func (u UserId) Less(o UserId) bool {
	return bytes.Compare(u[:], o[:]) < 0
}

func UserIdFromString(s string) (UserId, error) {
	var u UserId
	b, err := decodeBase64url(s, UserIdSize)
	if err != nil {
		return u, err
	}
	copy(u[:], b)
	return u, nil
}

// MinerId is the 32 raw Ed25519 bytes of a public key (the type tag is
// dropped; round-trippable to PublicKey by re-prepending it).
type MinerId [MinerIdSize]byte

func MinerIdFromPublicKey(pk PublicKey) MinerId {
	var id MinerId
	copy(id[:], pk[1:])
	return id
}

func (m MinerId) ToPublicKey() PublicKey {
	var pk PublicKey
	pk[0] = PublicKeyTypeEd25519
	copy(pk[1:], m[:])
	return pk
}

func (m MinerId) IsValid() bool  { return m != MinerId{} }
func (m MinerId) Bytes() []byte  { return m[:] }
func (m MinerId) String() string { return base64.RawURLEncoding.EncodeToString(m[:]) }
func (m MinerId) Less(o MinerId) bool {
	return bytes.Compare(m[:], o[:]) < 0
}

func MinerIdFromString(s string) (MinerId, error) {
	var m MinerId
	b, err := decodeBase64url(s, MinerIdSize)
	if err != nil {
		return m, err
	}
	copy(m[:], b)
	return m, nil
}

// Signature is an Ed25519 signature.
type Signature [SignatureSize]byte

func (s Signature) IsValid() bool  { return s != Signature{} }
func (s Signature) Bytes() []byte  { return s[:] }
func (s Signature) String() string { return base64.RawURLEncoding.EncodeToString(s[:]) }

func SignatureFromString(str string) (Signature, error) {
	var s Signature
	b, err := decodeBase64url(str, SignatureSize)
	if err != nil {
		return s, err
	}
	copy(s[:], b)
	return s, nil
}

// TransactionId carries (blockId BE, type, size BE, hash of serialized
// body+signatures) and sorts lexicographically by its byte encoding.
type TransactionId [TransactionIdSize]byte

func NewTransactionId(blockId uint32, txType uint8, size uint16, hash Hash) TransactionId {
	var id TransactionId
	id[0] = byte(blockId >> 24)
	id[1] = byte(blockId >> 16)
	id[2] = byte(blockId >> 8)
	id[3] = byte(blockId)
	id[4] = txType
	id[5] = byte(size >> 8)
	id[6] = byte(size)
	copy(id[7:], hash[:])
	return id
}

func (t TransactionId) BlockId() uint32 {
	return uint32(t[0])<<24 | uint32(t[1])<<16 | uint32(t[2])<<8 | uint32(t[3])
}
func (t TransactionId) Type() uint8 { return t[4] }
func (t TransactionId) Size() uint16 {
	return uint16(t[5])<<8 | uint16(t[6])
}
func (t TransactionId) Hash() Hash {
	var h Hash
	copy(h[:], t[7:])
	return h
}
func (t TransactionId) IsValid() bool  { return t != TransactionId{} }
func (t TransactionId) Bytes() []byte  { return t[:] }
func (t TransactionId) String() string { return base64.RawURLEncoding.EncodeToString(t[:]) }

func decodeBase64url(s string, size int) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		if padded, padErr := base64.URLEncoding.DecodeString(s); padErr == nil {
			b = padded
		} else {
			return nil, errors.Wrap(err, "crypto: invalid base64url encoding")
		}
	}
	if len(b) != size {
		return nil, errors.Errorf("crypto: expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}
