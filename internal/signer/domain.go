package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DarkPool Pool domain default values
const (
	DefaultDomainName    = "DarkPool Pool"
	DefaultDomainVersion = "1"
)

// EIP712Domain represents the EIP-712 domain structure.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// DomainSeparator calculates the EIP-712 domain separator.
// Reference: https://eips.ethereum.org/EIPS/eip-712
func (d *EIP712Domain) DomainSeparator() []byte {
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	typeHash := crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	nameHash := crypto.Keccak256Hash([]byte(d.Name))
	versionHash := crypto.Keccak256Hash([]byte(d.Version))

	bytes32Ty, _ := abi.NewType("bytes32", "", nil)
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)

	args := abi.Arguments{
		{Type: bytes32Ty},
		{Type: bytes32Ty},
		{Type: bytes32Ty},
		{Type: uint256Ty},
		{Type: addressTy},
	}

	encoded, _ := args.Pack(typeHash, nameHash, versionHash, d.ChainID, d.VerifyingContract)
	return crypto.Keccak256(encoded)
}

// DomainManager manages per-chain RFQ manager EIP-712 domains.
type DomainManager struct {
	domains map[uint64]*EIP712Domain
}

// NewDomainManager creates an empty domain manager.
func NewDomainManager() *DomainManager {
	return &DomainManager{
		domains: make(map[uint64]*EIP712Domain),
	}
}

// NewDefaultDomainManager creates a manager pre-populated with the deployed
// RFQ manager contracts.
func NewDefaultDomainManager() *DomainManager {
	m := NewDomainManager()
	for chainID, manager := range RFQManagers {
		m.AddDomain(chainID, manager)
	}
	return m
}

// AddDomain registers the RFQ manager domain for a chain with the default
// name and version.
func (m *DomainManager) AddDomain(chainID uint64, manager common.Address) {
	m.domains[chainID] = &EIP712Domain{
		Name:              DefaultDomainName,
		Version:           DefaultDomainVersion,
		ChainID:           new(big.Int).SetUint64(chainID),
		VerifyingContract: manager,
	}
}

// AddDomainWithConfig registers a domain with full configuration, falling
// back to defaults for empty name or version.
func (m *DomainManager) AddDomainWithConfig(chainID uint64, name, version, manager string) {
	if name == "" {
		name = DefaultDomainName
	}
	if version == "" {
		version = DefaultDomainVersion
	}
	m.domains[chainID] = &EIP712Domain{
		Name:              name,
		Version:           version,
		ChainID:           new(big.Int).SetUint64(chainID),
		VerifyingContract: common.HexToAddress(manager),
	}
}

// Domain returns the configured domain for a chain, or nil.
func (m *DomainManager) Domain(chainID uint64) *EIP712Domain {
	return m.domains[chainID]
}

// ManagerAddress returns the verifying contract for a chain.
func (m *DomainManager) ManagerAddress(chainID uint64) (common.Address, bool) {
	domain, ok := m.domains[chainID]
	if !ok {
		return common.Address{}, false
	}
	return domain.VerifyingContract, true
}

// DomainSeparator returns the domain separator for a chain.
func (m *DomainManager) DomainSeparator(chainID uint64) ([]byte, bool) {
	domain := m.domains[chainID]
	if domain == nil {
		return nil, false
	}
	return domain.DomainSeparator(), true
}

// HasDomain reports whether a domain is configured for a chain.
func (m *DomainManager) HasDomain(chainID uint64) bool {
	_, ok := m.domains[chainID]
	return ok
}

// ChainIDs returns all configured chain IDs.
func (m *DomainManager) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(m.domains))
	for id := range m.domains {
		ids = append(ids, id)
	}
	return ids
}
