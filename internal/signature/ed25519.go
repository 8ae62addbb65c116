package signature

import (
	"crypto/ed25519"
	"encoding/hex"

	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Ed25519 signs with per-role asymmetric keys. Verification only needs the
// public half, so verifiers never hold signing capability.
type Ed25519 struct{}

func (Ed25519) Name() string { return AlgorithmEd25519 }

func (Ed25519) Sign(message []byte, key KeyPair) (string, error) {
	if len(key.Private) != ed25519.PrivateKeySize {
		return "", pkgerrors.New(pkgerrors.CodeSignature, "ed25519 private key has wrong size")
	}
	sig := ed25519.Sign(ed25519.PrivateKey(key.Private), message)
	return hex.EncodeToString(sig), nil
}

func (Ed25519) Verify(message []byte, encodedSig string, key KeyPair) error {
	if len(key.Public) != ed25519.PublicKeySize {
		return pkgerrors.New(pkgerrors.CodeSignature, "ed25519 public key has wrong size")
	}
	sig, err := hex.DecodeString(encodedSig)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeSignature, err, "signature is not valid hex")
	}
	if !ed25519.Verify(ed25519.PublicKey(key.Public), message, sig) {
		return pkgerrors.New(pkgerrors.CodeSignature, "signature does not match document")
	}
	return nil
}

// GenerateEd25519KeyPair creates fresh key material, mainly for tests and
// local development.
func GenerateEd25519KeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return KeyPair{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating ed25519 keys")
	}
	return KeyPair{Private: priv, Public: pub}, nil
}
