package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MMQuote is the order struct the RFQ manager contract verifies.
// From and To come from the request recipient (the taker wallet), not the
// MM signer address.
type MMQuote struct {
	Manager     common.Address // RFQ manager address (EIP-712 verifying contract)
	From        common.Address // Taker source address (request recipient)
	To          common.Address // Taker target address (same as From)
	InputToken  common.Address // Input token address as received
	OutputToken common.Address // Output token address as received
	AmountIn    *big.Int       // Input amount in base units
	AmountOut   *big.Int       // Quoted output amount in base units
	Deadline    *big.Int       // Expiry (unix seconds), echoed from the request
	Nonce       *big.Int       // Anti-replay nonce, echoed from the request
	ExtraData   []byte         // Always empty for RFQ orders; hashed into extraDataHash
}

// MMQuoteTypeHash is the keccak256 of the MMQuote type string. Field order
// matches the manager contract's MMQUOTE_SIGNATURE_HASH.
var MMQuoteTypeHash = crypto.Keccak256Hash([]byte(
	"MMQuote(address manager,address from,address to,address inputToken,address outputToken," +
		"uint256 amountIn,uint256 amountOut,uint256 deadline,uint256 nonce,bytes32 extraDataHash)"))

// RFQManagers maps chain IDs to the deployed RFQ manager contracts.
var RFQManagers = map[uint64]common.Address{
	56:   common.HexToAddress("0x94020Af3571f253754e5566710A89666d90Df615"), // BSC
	8453: common.HexToAddress("0x7648CE928efa92372E2bb34086421a8a1702bD36"), // Base
}

// WrappedNativeTokens maps chain IDs to their wrapped native token addresses.
// The zero address in requests and pair lookups aliases to these.
var WrappedNativeTokens = map[uint64]common.Address{
	56:   common.HexToAddress("0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"), // BSC: WBNB
	8453: common.HexToAddress("0x4200000000000000000000000000000000000006"), // Base: WETH
}

// WrappedNative returns the wrapped native token address for a chain.
func WrappedNative(chainID uint64) (common.Address, bool) {
	addr, ok := WrappedNativeTokens[chainID]
	return addr, ok
}

// Manager returns the RFQ manager address for a chain.
func Manager(chainID uint64) (common.Address, bool) {
	addr, ok := RFQManagers[chainID]
	return addr, ok
}
