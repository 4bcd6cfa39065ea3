// Package security provides tamper-evident envelopes for comparison results.
//
// A sealed result binds the result payload to the digest of the catalog
// snapshot it was computed from, and is signed with a secp256k1 key so a
// downstream consumer can verify both the content and its origin.
package security

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/mandi-compare/internal/model"
)

var (
	// ErrHashMismatch indicates the payload does not match the recorded hash
	ErrHashMismatch = errors.New("payload hash mismatch")

	// ErrSignerMismatch indicates the signature was not produced by the expected key
	ErrSignerMismatch = errors.New("signature does not match signer")
)

// Envelope is a signed comparison result.
type Envelope struct {
	Result        *model.ProfitabilityResult `json:"result"`
	CatalogDigest string                     `json:"catalogDigest"`
	ResultHash    string                     `json:"resultHash"`
	Signature     string                     `json:"signature"`
	Signer        string                     `json:"signer"`
}

// Sealer signs comparison results.
type Sealer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSealer creates a sealer with a freshly generated key
func NewSealer() (*Sealer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewSealerFromKey(key), nil
}

// NewSealerFromKey creates a sealer for an existing key
func NewSealerFromKey(key *ecdsa.PrivateKey) *Sealer {
	s := &Sealer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
	logrus.Infof("Result sealing enabled, signer %s", s.address.Hex())
	return s
}

// Address returns the signer address that verifiers should expect
func (s *Sealer) Address() string {
	return s.address.Hex()
}

// ResultHash computes keccak256(catalogDigest || json(result)). The result
// contains no timestamps, so identical comparisons hash identically.
func ResultHash(result *model.ProfitabilityResult, catalogDigest string) (common.Hash, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	return crypto.Keccak256Hash([]byte(catalogDigest), payload), nil
}

// Seal signs a result computed against the catalog with the given digest
func (s *Sealer) Seal(result *model.ProfitabilityResult, catalogDigest string) (*Envelope, error) {
	hash, err := ResultHash(result, catalogDigest)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign result: %w", err)
	}

	return &Envelope{
		Result:        result,
		CatalogDigest: catalogDigest,
		ResultHash:    hash.Hex(),
		Signature:     hexutil.Encode(sig),
		Signer:        s.address.Hex(),
	}, nil
}

// Verify checks the envelope hash and that its signature recovers to the
// expected signer address.
func Verify(env *Envelope, expectedSigner string) error {
	hash, err := ResultHash(env.Result, env.CatalogDigest)
	if err != nil {
		return err
	}
	if hash.Hex() != env.ResultHash {
		return ErrHashMismatch
	}

	sig, err := hexutil.Decode(env.Signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(expectedSigner) || recovered != common.HexToAddress(env.Signer) {
		return ErrSignerMismatch
	}
	return nil
}
