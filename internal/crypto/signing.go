package crypto

import (
	stdrand "crypto/rand"

	"github.com/pkg/errors"
	xed25519 "golang.org/x/crypto/ed25519"
)

// SignaturePrefix is prepended to every signed payload for domain
// separation between Logpass transactions and any other protocol that
// might otherwise accept the same raw bytes.
const SignaturePrefix = "LOGPASS SIGNED TRANSACTION:\n"

// PrivateKey is an Ed25519 private key together with its derived public key.
type PrivateKey struct {
	priv xed25519.PrivateKey
	pub  PublicKey
}

// GeneratePrivateKey creates a fresh Ed25519 keypair.
func GeneratePrivateKey() (PrivateKey, error) {
	pub, priv, err := xed25519.GenerateKey(stdrand.Reader)
	if err != nil {
		return PrivateKey{}, errors.Wrap(err, "crypto: generate key")
	}
	var pk PublicKey
	pk[0] = PublicKeyTypeEd25519
	copy(pk[1:], pub)
	return PrivateKey{priv: priv, pub: pk}, nil
}

func (k PrivateKey) PublicKey() PublicKey { return k.pub }

// Sign signs payload under the domain-separation prefix.
func (k PrivateKey) Sign(payload []byte) Signature {
	msg := append([]byte(SignaturePrefix), payload...)
	sig := xed25519.Sign(k.priv, msg)
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify checks sig over payload under the domain-separation prefix.
func Verify(pub PublicKey, payload []byte, sig Signature) bool {
	if !pub.IsValid() {
		return false
	}
	msg := append([]byte(SignaturePrefix), payload...)
	return xed25519.Verify(xed25519.PublicKey(pub[1:]), msg, sig[:])
}
