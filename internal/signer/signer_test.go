package signer

import (
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func testQuote() *MMQuote {
	amountOut, _ := new(big.Int).SetString("598200000000000000000", 10)
	return &MMQuote{
		Manager:     RFQManagers[56],
		From:        common.HexToAddress("0x1234567890123456789012345678901234567890"),
		To:          common.HexToAddress("0x1234567890123456789012345678901234567890"),
		InputToken:  common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
		OutputToken: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
		AmountIn:    big.NewInt(1000000000000000000), // 1e18
		AmountOut:   amountOut,
		Deadline:    big.NewInt(1735084800),
		Nonce:       big.NewInt(1),
		ExtraData:   []byte{},
	}
}

func TestMMQuoteTypeHash(t *testing.T) {
	// Verify TypeHash calculation is correct
	expected := crypto.Keccak256Hash([]byte(
		"MMQuote(address manager,address from,address to,address inputToken,address outputToken,uint256 amountIn,uint256 amountOut,uint256 deadline,uint256 nonce,bytes32 extraDataHash)",
	))

	if MMQuoteTypeHash != expected {
		t.Errorf("MMQuoteTypeHash = %x, want %x", MMQuoteTypeHash, expected)
	}
}

func TestEIP712Domain_DomainSeparator(t *testing.T) {
	domain := &EIP712Domain{
		Name:              DefaultDomainName,
		Version:           DefaultDomainVersion,
		ChainID:           big.NewInt(56),
		VerifyingContract: RFQManagers[56],
	}

	separator := domain.DomainSeparator()
	if len(separator) != 32 {
		t.Errorf("DomainSeparator length = %d, want 32", len(separator))
	}

	// Ensure two calls return the same result
	separator2 := domain.DomainSeparator()
	if string(separator) != string(separator2) {
		t.Error("DomainSeparator should be deterministic")
	}
}

func TestDomainManager(t *testing.T) {
	dm := NewDomainManager()

	dm.AddDomain(56, RFQManagers[56])

	domain := dm.Domain(56)
	if domain == nil {
		t.Fatal("Domain returned nil")
	}
	if domain.Name != DefaultDomainName {
		t.Errorf("Domain.Name = %s, want %s", domain.Name, DefaultDomainName)
	}
	if domain.ChainID.Int64() != 56 {
		t.Errorf("Domain.ChainID = %d, want 56", domain.ChainID.Int64())
	}

	if !dm.HasDomain(56) {
		t.Error("HasDomain(56) should be true")
	}
	if dm.HasDomain(1) {
		t.Error("HasDomain(1) should be false")
	}

	separator, ok := dm.DomainSeparator(56)
	if !ok {
		t.Error("DomainSeparator should return true for configured chain")
	}
	if len(separator) != 32 {
		t.Errorf("DomainSeparator length = %d, want 32", len(separator))
	}

	_, ok = dm.DomainSeparator(1)
	if ok {
		t.Error("DomainSeparator should return false for unconfigured chain")
	}

	ids := dm.ChainIDs()
	if len(ids) != 1 || ids[0] != 56 {
		t.Errorf("ChainIDs = %v, want [56]", ids)
	}
}

func TestNewDefaultDomainManager(t *testing.T) {
	dm := NewDefaultDomainManager()

	for chainID, manager := range RFQManagers {
		addr, ok := dm.ManagerAddress(chainID)
		if !ok {
			t.Errorf("chain %d should be pre-configured", chainID)
			continue
		}
		if addr != manager {
			t.Errorf("chain %d manager = %s, want %s", chainID, addr.Hex(), manager.Hex())
		}
	}
}

func TestDomainManager_AddDomainWithConfig(t *testing.T) {
	dm := NewDomainManager()

	dm.AddDomainWithConfig(8453, "Custom Domain", "2", "0x2F46232bC664356BB38AA556Fe1aC939B2Cc7c74")

	domain := dm.Domain(8453)
	if domain == nil {
		t.Fatal("Domain returned nil")
	}
	if domain.Name != "Custom Domain" {
		t.Errorf("Domain.Name = %s, want Custom Domain", domain.Name)
	}
	if domain.Version != "2" {
		t.Errorf("Domain.Version = %s, want 2", domain.Version)
	}

	// Empty values use defaults
	dm.AddDomainWithConfig(1, "", "", "0x1234567890123456789012345678901234567890")
	domain = dm.Domain(1)
	if domain.Name != DefaultDomainName {
		t.Errorf("Domain.Name = %s, want %s", domain.Name, DefaultDomainName)
	}
	if domain.Version != DefaultDomainVersion {
		t.Errorf("Domain.Version = %s, want %s", domain.Version, DefaultDomainVersion)
	}
}

func TestNewFromHex(t *testing.T) {
	dm := NewDefaultDomainManager()

	validKey := "0x0000000000000000000000000000000000000000000000000000000000000001"
	s, err := NewFromHex(validKey, dm)
	if err != nil {
		t.Fatalf("NewFromHex failed: %v", err)
	}
	if s == nil {
		t.Fatal("Signer should not be nil")
	}

	if s.Address() == (common.Address{}) {
		t.Error("Address returned zero address")
	}

	_, err = NewFromHex("invalid", dm)
	if err == nil {
		t.Error("NewFromHex should fail with invalid key")
	}
}

func TestSigner_SignMMQuote(t *testing.T) {
	dm := NewDefaultDomainManager()
	s, err := NewFromHex("0x0000000000000000000000000000000000000000000000000000000000000001", dm)
	if err != nil {
		t.Fatalf("NewFromHex failed: %v", err)
	}

	quote := testQuote()
	sig, err := s.SignMMQuote(56, quote)
	if err != nil {
		t.Fatalf("SignMMQuote failed: %v", err)
	}

	// Signature is 65 bytes: r(32) + s(32) + v(1)
	if len(sig) != 65 {
		t.Errorf("Signature length = %d, want 65", len(sig))
	}

	v := sig[64]
	if v != 27 && v != 28 {
		t.Errorf("Signature v = %d, want 27 or 28", v)
	}

	// Ensure signature is deterministic
	sig2, _ := s.SignMMQuote(56, quote)
	if string(sig) != string(sig2) {
		t.Error("Signature should be deterministic")
	}
}

func TestSigner_SignMMQuote_Recovers(t *testing.T) {
	dm := NewDefaultDomainManager()
	s, err := NewFromHex("0x0000000000000000000000000000000000000000000000000000000000000001", dm)
	if err != nil {
		t.Fatalf("NewFromHex failed: %v", err)
	}

	quote := testQuote()
	sig, err := s.SignMMQuote(56, quote)
	if err != nil {
		t.Fatalf("SignMMQuote failed: %v", err)
	}

	// Recompute the digest and recover the public key
	separator, _ := dm.DomainSeparator(56)
	structHash, err := hashMMQuote(quote)
	if err != nil {
		t.Fatalf("hashMMQuote failed: %v", err)
	}
	digest := crypto.Keccak256Hash([]byte{0x19, 0x01}, separator, structHash)

	recSig := make([]byte, 65)
	copy(recSig, sig)
	recSig[64] -= 27

	pub, err := crypto.SigToPub(digest.Bytes(), recSig)
	if err != nil {
		t.Fatalf("SigToPub failed: %v", err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != s.Address() {
		t.Errorf("recovered address = %s, want %s", recovered.Hex(), s.Address().Hex())
	}
}

func TestSigner_SignMMQuote_ChainNotConfigured(t *testing.T) {
	dm := NewDomainManager()
	s, _ := NewFromHex("0x0000000000000000000000000000000000000000000000000000000000000001", dm)

	_, err := s.SignMMQuote(56, testQuote())
	if err == nil {
		t.Error("SignMMQuote should fail when chain is not configured")
	}
}

func TestEmptyExtraDataHash(t *testing.T) {
	if HashExtraData(nil) != EmptyExtraDataHash {
		t.Errorf("HashExtraData(nil) = %x, want %x", HashExtraData(nil), EmptyExtraDataHash)
	}
	if HashExtraData([]byte{}) != EmptyExtraDataHash {
		t.Error("HashExtraData of empty slice should equal EmptyExtraDataHash")
	}
}

func TestHashExtraData(t *testing.T) {
	extraData := []byte{0x01, 0x02, 0x03}
	hash := HashExtraData(extraData)

	if len(hash) != 32 {
		t.Errorf("HashExtraData length = %d, want 32", len(hash))
	}

	hash2 := HashExtraData(extraData)
	if hash != hash2 {
		t.Error("HashExtraData should be deterministic")
	}
}

func TestSignatureHex(t *testing.T) {
	sig := []byte{0xde, 0xad, 0xbe, 0xef}
	if got := SignatureHex(sig); got != "0xdeadbeef" {
		t.Errorf("SignatureHex = %s, want 0xdeadbeef", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	dm := NewDefaultDomainManager()

	// Direct private key
	cfg := &Config{
		PrivateKey: "0x0000000000000000000000000000000000000000000000000000000000000001",
	}
	s, err := NewFromConfig(cfg, dm)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if s == nil {
		t.Fatal("Signer should not be nil")
	}

	// Environment variable fallback
	t.Setenv("TEST_MM_KEY", "0x0000000000000000000000000000000000000000000000000000000000000002")
	envCfg := &Config{PrivateKeyEnv: "TEST_MM_KEY"}
	s2, err := NewFromConfig(envCfg, dm)
	if err != nil {
		t.Fatalf("NewFromConfig with env failed: %v", err)
	}
	if s2.Address() == s.Address() {
		t.Error("different keys should produce different addresses")
	}

	// Unset environment variable
	os.Unsetenv("TEST_MM_KEY_MISSING")
	_, err = NewFromConfig(&Config{PrivateKeyEnv: "TEST_MM_KEY_MISSING"}, dm)
	if err == nil {
		t.Error("NewFromConfig should fail when env var is unset")
	}

	// Empty configuration
	_, err = NewFromConfig(&Config{}, dm)
	if err == nil {
		t.Error("NewFromConfig should fail with empty config")
	}
}
