package quote

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/deluthium/darkpool-mm/internal/signer"
)

// Level is one configured depth level.
type Level struct {
	SpreadBps uint32
	Amount    decimal.Decimal
}

// Pair is a configured offering. Immutable after registration.
type Pair struct {
	ChainID      uint64
	BaseToken    common.Address
	QuoteToken   common.Address
	BidSpreadBps uint32
	AskSpreadBps uint32
	OrderAmount  decimal.Decimal
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
	Levels       []Level
}

// ID returns the registry key, "base-quote" in lowercase hex.
func (p *Pair) ID() string {
	return strings.ToLower(p.BaseToken.Hex()) + "-" + strings.ToLower(p.QuoteToken.Hex())
}

// Registry holds the configured pairs. It is populated at startup and
// read-only afterwards, so lookups take no lock.
type Registry struct {
	pairs []*Pair
	byID  map[string]*Pair
}

// NewRegistry creates an empty pair registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*Pair),
	}
}

// Add registers a pair. Registration order is preserved for depth pushes.
func (r *Registry) Add(pair *Pair) error {
	id := pair.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("pair %s already registered", id)
	}
	r.pairs = append(r.pairs, pair)
	r.byID[id] = pair
	return nil
}

// Pairs returns all pairs in registration order.
func (r *Registry) Pairs() []*Pair {
	return r.pairs
}

// Len returns the number of registered pairs.
func (r *Registry) Len() int {
	return len(r.pairs)
}

// Find matches a pair for the given chain and token direction. The zero
// address aliases to the chain's wrapped native token, and both directions
// are tried.
func (r *Registry) Find(chainID uint64, tokenIn, tokenOut common.Address) *Pair {
	tokenIn = NormalizeToken(chainID, tokenIn)
	tokenOut = NormalizeToken(chainID, tokenOut)

	forward := strings.ToLower(tokenIn.Hex()) + "-" + strings.ToLower(tokenOut.Hex())
	if pair, ok := r.byID[forward]; ok && pair.ChainID == chainID {
		return pair
	}

	reverse := strings.ToLower(tokenOut.Hex()) + "-" + strings.ToLower(tokenIn.Hex())
	if pair, ok := r.byID[reverse]; ok && pair.ChainID == chainID {
		return pair
	}

	return nil
}

// NormalizeToken replaces the zero address with the chain's wrapped native
// token. Unknown chains pass the address through unchanged.
func NormalizeToken(chainID uint64, token common.Address) common.Address {
	if token != (common.Address{}) {
		return token
	}
	if wrapped, ok := signer.WrappedNative(chainID); ok {
		return wrapped
	}
	return token
}
