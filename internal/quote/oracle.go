package quote

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceOracle supplies the mid price for a token pair. Implementations must
// be safe for concurrent use; the ok result is false when no price is known.
type PriceOracle interface {
	MidPrice(tokenIn, tokenOut common.Address) (decimal.Decimal, bool)
}

// StaticOracle is a price feed backed by operator-configured prices. It
// answers reverse lookups with the reciprocal and can optionally fall back
// to parity (1.0) for unknown pairs, which is a stub behavior suitable only
// for testing.
type StaticOracle struct {
	mu             sync.RWMutex
	prices         map[string]decimal.Decimal
	fallbackParity bool
}

// NewStaticOracle creates an empty static oracle.
func NewStaticOracle(fallbackParity bool) *StaticOracle {
	return &StaticOracle{
		prices:         make(map[string]decimal.Decimal),
		fallbackParity: fallbackParity,
	}
}

// SetPrice sets the mid price for tokenIn -> tokenOut.
func (o *StaticOracle) SetPrice(tokenIn, tokenOut common.Address, price decimal.Decimal) {
	o.mu.Lock()
	o.prices[priceKey(tokenIn, tokenOut)] = price
	o.mu.Unlock()
}

// MidPrice returns the configured price, the reciprocal of the reverse
// pair, or parity when the fallback is enabled.
func (o *StaticOracle) MidPrice(tokenIn, tokenOut common.Address) (decimal.Decimal, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if price, ok := o.prices[priceKey(tokenIn, tokenOut)]; ok {
		return price, true
	}
	if reverse, ok := o.prices[priceKey(tokenOut, tokenIn)]; ok && !reverse.IsZero() {
		return decimal.NewFromInt(1).DivRound(reverse, 36), true
	}
	if o.fallbackParity {
		return decimal.NewFromInt(1), true
	}
	return decimal.Decimal{}, false
}

func priceKey(tokenIn, tokenOut common.Address) string {
	return fmt.Sprintf("%s-%s",
		strings.ToLower(tokenIn.Hex()),
		strings.ToLower(tokenOut.Hex()))
}
