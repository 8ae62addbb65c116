package signature

import (
	"fmt"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Keyring holds the key material for every signer role under a single
// algorithm. Roles are independent namespaces: a key for one role can never
// verify a signature produced under another.
type Keyring struct {
	algorithm string
	keys      map[enums.SignerRole]KeyPair
}

// NewKeyring builds a keyring for the named algorithm. Every valid signer
// role must have a key.
func NewKeyring(algorithm string, keys map[enums.SignerRole]KeyPair) (*Keyring, error) {
	if algorithm == "" {
		return nil, fmt.Errorf("keyring algorithm is required")
	}
	for _, role := range []enums.SignerRole{
		enums.SignerRoleUser,
		enums.SignerRoleAgent,
		enums.SignerRolePaymentAgent,
	} {
		key, ok := keys[role]
		if !ok || len(key.Private) == 0 {
			return nil, fmt.Errorf("keyring missing key for role %q", role)
		}
	}
	return &Keyring{algorithm: algorithm, keys: keys}, nil
}

// NewHMACKeyringFromConfig builds the keyring from the configured per-role
// shared secrets.
func NewHMACKeyringFromConfig(cfg config.SignatureConfig) (*Keyring, error) {
	return NewKeyring(AlgorithmHMACSHA256, map[enums.SignerRole]KeyPair{
		enums.SignerRoleUser:         {Private: []byte(cfg.UserSecret)},
		enums.SignerRoleAgent:        {Private: []byte(cfg.AgentSecret)},
		enums.SignerRolePaymentAgent: {Private: []byte(cfg.PaymentAgentSecret)},
	})
}

// Algorithm returns the algorithm this keyring serves.
func (k *Keyring) Algorithm() string {
	return k.algorithm
}

// KeyFor returns the key material for the role, failing closed for unknown
// roles.
func (k *Keyring) KeyFor(role enums.SignerRole) (KeyPair, error) {
	if !role.IsValid() {
		return KeyPair{}, pkgerrors.New(pkgerrors.CodeSignature, fmt.Sprintf("unknown signer role %q", role))
	}
	key, ok := k.keys[role]
	if !ok {
		return KeyPair{}, pkgerrors.New(pkgerrors.CodeSignature, fmt.Sprintf("no key material for role %q", role))
	}
	return key, nil
}
