package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces EIP-712 signatures over MMQuote structs.
type Signer interface {
	// SignMMQuote signs an MMQuote against the chain's RFQ manager domain.
	// The returned signature is 65 bytes r||s||v with v in {27,28}.
	SignMMQuote(chainID uint64, quote *MMQuote) ([]byte, error)
	// Address returns the signer address.
	Address() common.Address
}

// Config selects the signing key: the literal hex value wins, otherwise the
// named environment variable is read.
type Config struct {
	PrivateKey    string `json:"privateKey"`
	PrivateKeyEnv string `json:"privateKeyEnv"`
}

type signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domains    *DomainManager
}

// New creates a signer from a parsed private key.
func New(privateKey *ecdsa.PrivateKey, domains *DomainManager) Signer {
	return &signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		domains:    domains,
	}
}

// NewFromHex creates a signer from a hexadecimal private key.
func NewFromHex(hexKey string, domains *DomainManager) (Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return New(privateKey, domains), nil
}

// NewFromConfig creates a signer from config, preferring the literal key and
// falling back to the environment variable.
func NewFromConfig(cfg *Config, domains *DomainManager) (Signer, error) {
	var hexKey string
	if cfg.PrivateKey != "" {
		hexKey = strings.TrimSpace(cfg.PrivateKey)
	} else if cfg.PrivateKeyEnv != "" {
		hexKey = strings.TrimSpace(os.Getenv(cfg.PrivateKeyEnv))
		if hexKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set and no privateKey in config", cfg.PrivateKeyEnv)
		}
	} else {
		return nil, fmt.Errorf("neither privateKey nor privateKeyEnv is configured")
	}
	return NewFromHex(hexKey, domains)
}

// Address returns the signer address.
func (s *signer) Address() common.Address {
	return s.address
}

// SignMMQuote signs an MMQuote against the chain's RFQ manager domain.
func (s *signer) SignMMQuote(chainID uint64, quote *MMQuote) ([]byte, error) {
	domainSeparator, ok := s.domains.DomainSeparator(chainID)
	if !ok {
		return nil, fmt.Errorf("RFQ manager not configured for chainId %d", chainID)
	}

	structHash, err := hashMMQuote(quote)
	if err != nil {
		return nil, fmt.Errorf("failed to hash MMQuote: %w", err)
	}

	// EIP-712 digest: keccak256("\x19\x01" || domainSeparator || structHash)
	digest := crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		domainSeparator,
		structHash,
	)

	sig, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Normalize v to 27/28 (Ethereum standard)
	if sig[64] < 27 {
		sig[64] += 27
	}

	return sig, nil
}

// hashMMQuote calculates the struct hash of an MMQuote. Field order matches
// the manager contract's MMQUOTE_SIGNATURE_HASH.
func hashMMQuote(quote *MMQuote) ([]byte, error) {
	bytes32Ty, _ := abi.NewType("bytes32", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)
	uint256Ty, _ := abi.NewType("uint256", "", nil)

	args := abi.Arguments{
		{Type: bytes32Ty}, // typeHash
		{Type: addressTy}, // manager
		{Type: addressTy}, // from
		{Type: addressTy}, // to
		{Type: addressTy}, // inputToken
		{Type: addressTy}, // outputToken
		{Type: uint256Ty}, // amountIn
		{Type: uint256Ty}, // amountOut
		{Type: uint256Ty}, // deadline
		{Type: uint256Ty}, // nonce
		{Type: bytes32Ty}, // extraDataHash
	}

	encoded, err := args.Pack(
		MMQuoteTypeHash,
		quote.Manager,
		quote.From,
		quote.To,
		quote.InputToken,
		quote.OutputToken,
		quote.AmountIn,
		quote.AmountOut,
		quote.Deadline,
		quote.Nonce,
		HashExtraData(quote.ExtraData),
	)
	if err != nil {
		return nil, err
	}

	return crypto.Keccak256(encoded), nil
}

// SignatureHex renders a raw signature as 0x-prefixed hex for the wire.
func SignatureHex(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}
