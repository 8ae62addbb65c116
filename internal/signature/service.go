package signature

import (
	"fmt"
	"time"

	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Envelope is the signature block attached to a mandate. The signed message
// binds the canonical document to the signer identity and timestamp, so
// tampering with any of the three invalidates the signature.
type Envelope struct {
	Algorithm      string           `json:"algorithm"`
	Signature      string           `json:"signature"`
	SignerIdentity string           `json:"signer_identity"`
	SignerRole     enums.SignerRole `json:"signer_role"`
	Timestamp      string           `json:"timestamp"`
}

// Service signs and verifies mandate documents. Verification fails closed:
// unknown algorithms, unknown roles, and malformed envelopes are all
// signature failures, never a pass.
type Service struct {
	algorithms map[string]Algorithm
	keyring    *Keyring
	now        func() time.Time
}

// NewService wires the algorithm registry around the provided keyring.
func NewService(keyring *Keyring) (*Service, error) {
	if keyring == nil {
		return nil, fmt.Errorf("keyring is required")
	}
	algorithms := map[string]Algorithm{
		AlgorithmHMACSHA256: HMACSHA256{},
		AlgorithmEd25519:    Ed25519{},
	}
	if _, ok := algorithms[keyring.Algorithm()]; !ok {
		return nil, fmt.Errorf("unsupported signature algorithm %q", keyring.Algorithm())
	}
	return &Service{
		algorithms: algorithms,
		keyring:    keyring,
		now:        time.Now,
	}, nil
}

// WithClock overrides the timestamp source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Sign canonicalizes the document and produces a signature envelope for the
// given identity acting under the given role.
func (s *Service) Sign(doc any, identity string, role enums.SignerRole) (Envelope, error) {
	if identity == "" {
		return Envelope{}, pkgerrors.New(pkgerrors.CodeSignature, "signer identity is required")
	}
	key, err := s.keyring.KeyFor(role)
	if err != nil {
		return Envelope{}, err
	}
	canonical, err := Canonicalize(doc)
	if err != nil {
		return Envelope{}, err
	}
	timestamp := s.now().UTC().Format(time.RFC3339Nano)
	alg := s.algorithms[s.keyring.Algorithm()]
	sig, err := alg.Sign(signingMessage(canonical, identity, timestamp), key)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Algorithm:      alg.Name(),
		Signature:      sig,
		SignerIdentity: identity,
		SignerRole:     role,
		Timestamp:      timestamp,
	}, nil
}

// Verify checks the envelope against the document. The key is selected by
// the envelope's role, so a signature produced under one role can never
// verify under another.
func (s *Service) Verify(doc any, env Envelope) error {
	if env.Signature == "" || env.SignerIdentity == "" || env.Timestamp == "" {
		return pkgerrors.New(pkgerrors.CodeSignature, "signature envelope is incomplete")
	}
	alg, ok := s.algorithms[env.Algorithm]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeSignature, fmt.Sprintf("unknown signature algorithm %q", env.Algorithm))
	}
	if env.Algorithm != s.keyring.Algorithm() {
		return pkgerrors.New(pkgerrors.CodeSignature, fmt.Sprintf("no key material for algorithm %q", env.Algorithm))
	}
	key, err := s.keyring.KeyFor(env.SignerRole)
	if err != nil {
		return err
	}
	canonical, err := Canonicalize(doc)
	if err != nil {
		return err
	}
	return alg.Verify(signingMessage(canonical, env.SignerIdentity, env.Timestamp), env.Signature, key)
}

// signingMessage binds canonical bytes, identity, and timestamp into the
// byte string the algorithm actually signs.
func signingMessage(canonical []byte, identity, timestamp string) []byte {
	msg := make([]byte, 0, len(canonical)+len(identity)+len(timestamp)+2)
	msg = append(msg, canonical...)
	msg = append(msg, '|')
	msg = append(msg, identity...)
	msg = append(msg, '|')
	msg = append(msg, timestamp...)
	return msg
}
