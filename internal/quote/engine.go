package quote

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/deluthium/darkpool-mm/internal/protocol"
)

// baseUnitDecimals is the fixed-point scale of wire amounts.
const baseUnitDecimals = 18

// Result is a priced quote: the output amount, the pair that matched, and
// the spread side that was applied.
type Result struct {
	AmountOut *big.Int
	Pair      *Pair
	SpreadBps uint32
}

// RejectError carries the wire reject reason for a quote that cannot be
// priced.
type RejectError struct {
	Reason  protocol.RejectReason
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func reject(reason protocol.RejectReason, format string, args ...any) *RejectError {
	return &RejectError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Engine prices quote requests against the pair registry and the oracle.
type Engine struct {
	registry *Registry
	oracle   PriceOracle
}

// NewEngine creates a pricing engine.
func NewEngine(registry *Registry, oracle PriceOracle) *Engine {
	return &Engine{
		registry: registry,
		oracle:   oracle,
	}
}

// Price computes the output amount for a request, or returns a *RejectError
// naming the wire reason.
func (e *Engine) Price(req *protocol.QuoteRequest) (*Result, error) {
	tokenIn := common.HexToAddress(req.TokenIn)
	tokenOut := common.HexToAddress(req.TokenOut)

	pair := e.registry.Find(req.ChainID, tokenIn, tokenOut)
	if pair == nil {
		return nil, reject(protocol.RejectUnsupportedPair,
			"pair not found for tokens %s-%s on chain %d", req.TokenIn, req.TokenOut, req.ChainID)
	}

	amountIn, ok := new(big.Int).SetString(req.AmountIn, 10)
	if !ok || amountIn.Sign() <= 0 {
		return nil, reject(protocol.RejectInternalError, "invalid amount_in %q", req.AmountIn)
	}

	// Order size bounds are configured in whole tokens; compare in base units.
	amountInDec := decimal.NewFromBigInt(amountIn, 0)
	minBase := pair.MinOrderSize.Shift(baseUnitDecimals)
	maxBase := pair.MaxOrderSize.Shift(baseUnitDecimals)
	if amountInDec.LessThan(minBase) || amountInDec.GreaterThan(maxBase) {
		return nil, reject(protocol.RejectInsufficientLiquidity,
			"amount %s outside [%s, %s]", amountInDec, minBase, maxBase)
	}

	normIn := NormalizeToken(req.ChainID, tokenIn)
	normOut := NormalizeToken(req.ChainID, tokenOut)

	// Selling the base token uses the bid spread, buying it uses the ask
	// spread. Operators who price the taker's buy of base off the ask side
	// must configure their spreads accordingly.
	spreadBps := pair.AskSpreadBps
	if normIn == pair.BaseToken {
		spreadBps = pair.BidSpreadBps
	}
	if spreadBps >= 10000 {
		return nil, reject(protocol.RejectInternalError, "spread %d bps consumes the full amount", spreadBps)
	}

	mid, ok := e.oracle.MidPrice(normIn, normOut)
	if !ok {
		return nil, reject(protocol.RejectInsufficientLiquidity,
			"no price for %s-%s", normIn.Hex(), normOut.Hex())
	}
	if mid.Sign() <= 0 {
		return nil, reject(protocol.RejectInternalError, "non-positive mid price %s", mid)
	}

	// amountOut = floor(amountIn * mid * (1 - spread/10000))
	spreadFactor := decimal.New(int64(10000-spreadBps), -4)
	amountOut := amountInDec.Mul(mid).Mul(spreadFactor).Floor().BigInt()
	if amountOut.Sign() <= 0 {
		return nil, reject(protocol.RejectInsufficientLiquidity, "computed amount out is zero")
	}

	return &Result{
		AmountOut: amountOut,
		Pair:      pair,
		SpreadBps: spreadBps,
	}, nil
}
