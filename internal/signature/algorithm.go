package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

const (
	AlgorithmHMACSHA256 = "HMAC-SHA256"
	AlgorithmEd25519    = "Ed25519"
)

// KeyPair carries the key material for one signer role. Symmetric algorithms
// use only Private; asymmetric algorithms use both halves.
type KeyPair struct {
	Private []byte
	Public  []byte
}

// Algorithm is the strategy boundary for producing and checking signatures.
// Implementations must be deterministic in Verify: same message, same key,
// same signature always yields the same answer.
type Algorithm interface {
	Name() string
	Sign(message []byte, key KeyPair) (string, error)
	Verify(message []byte, encodedSig string, key KeyPair) error
}

// HMACSHA256 signs with a per-role shared secret.
type HMACSHA256 struct{}

func (HMACSHA256) Name() string { return AlgorithmHMACSHA256 }

func (HMACSHA256) Sign(message []byte, key KeyPair) (string, error) {
	if len(key.Private) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeSignature, "signing key is empty")
	}
	mac := hmac.New(sha256.New, key.Private)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (h HMACSHA256) Verify(message []byte, encodedSig string, key KeyPair) error {
	expected, err := h.Sign(message, key)
	if err != nil {
		return err
	}
	// constant-time compare; both sides are hex of fixed-size digests
	if !hmac.Equal([]byte(expected), []byte(encodedSig)) {
		return pkgerrors.New(pkgerrors.CodeSignature, "signature does not match document")
	}
	return nil
}
