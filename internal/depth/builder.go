package depth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deluthium/darkpool-mm/internal/protocol"
	"github.com/deluthium/darkpool-mm/internal/quote"
)

// baseUnitDecimals is the fixed-point scale of wire amounts.
const baseUnitDecimals = 18

// Builder renders configured pairs into depth snapshots around the oracle
// mid price.
type Builder struct {
	oracle quote.PriceOracle
}

// NewBuilder creates a depth builder.
func NewBuilder(oracle quote.PriceOracle) *Builder {
	return &Builder{oracle: oracle}
}

// Snapshot builds a depth_update for one pair. seq is supplied by the
// session and increments for every published snapshot across all pairs.
func (b *Builder) Snapshot(pair *quote.Pair, seq uint64) (*protocol.DepthUpdate, error) {
	mid, ok := b.oracle.MidPrice(pair.BaseToken, pair.QuoteToken)
	if !ok {
		return nil, fmt.Errorf("no mid price for pair %s", pair.ID())
	}
	if mid.Sign() <= 0 {
		return nil, fmt.Errorf("non-positive mid price %s for pair %s", mid, pair.ID())
	}

	type level struct {
		price  decimal.Decimal
		amount decimal.Decimal
	}

	var bids, asks []level
	if len(pair.Levels) == 0 {
		// Single level at the configured spreads with the default size.
		bids = append(bids, level{spreadPrice(mid, pair.BidSpreadBps, -1), pair.OrderAmount})
		asks = append(asks, level{spreadPrice(mid, pair.AskSpreadBps, +1), pair.OrderAmount})
	} else {
		for _, l := range pair.Levels {
			bids = append(bids, level{spreadPrice(mid, l.SpreadBps, -1), l.Amount})
			asks = append(asks, level{spreadPrice(mid, l.SpreadBps, +1), l.Amount})
		}
	}

	// Bids price-descending, asks price-ascending.
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].price.GreaterThan(bids[j].price) })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].price.LessThan(asks[j].price) })

	render := func(levels []level) []protocol.PriceLevel {
		out := make([]protocol.PriceLevel, len(levels))
		for i, l := range levels {
			out[i] = protocol.PriceLevel{
				Price:  l.price.String(),
				Amount: l.amount.Shift(baseUnitDecimals).Floor().BigInt().String(),
			}
		}
		return out
	}

	return &protocol.DepthUpdate{
		Type:       protocol.TypeDepthUpdate,
		ChainID:    pair.ChainID,
		PairID:     pair.ID(),
		TokenA:     strings.ToLower(pair.BaseToken.Hex()),
		TokenB:     strings.ToLower(pair.QuoteToken.Hex()),
		Bids:       render(bids),
		Asks:       render(asks),
		SequenceID: seq,
		Timestamp:  time.Now().UnixMilli(),
	}, nil
}

// spreadPrice shifts the mid by spreadBps in the given direction.
func spreadPrice(mid decimal.Decimal, spreadBps uint32, direction int64) decimal.Decimal {
	factor := decimal.New(10000+direction*int64(spreadBps), -4)
	return mid.Mul(factor)
}
