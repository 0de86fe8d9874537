package quote

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/deluthium/darkpool-mm/internal/protocol"
	"github.com/deluthium/darkpool-mm/internal/signer"
)

// Handler turns a quote_request into exactly one outbound frame: a signed
// quote_response or a quote_reject.
type Handler struct {
	engine  *Engine
	signer  signer.Signer
	domains *signer.DomainManager
	logger  *slog.Logger
}

// NewHandler creates a quote handler.
func NewHandler(engine *Engine, s signer.Signer, domains *signer.DomainManager, logger *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		signer:  s,
		domains: domains,
		logger:  logger.With("component", "QuoteHandler"),
	}
}

// Handle processes a quote request. It always returns a frame addressed to
// the request's quote_id; failures become rejects, never dropped requests.
func (h *Handler) Handle(ctx context.Context, req *protocol.QuoteRequest) protocol.Frame {
	h.logger.Info("received quote request",
		"quoteId", req.QuoteID,
		"chainId", req.ChainID,
		"tokenIn", req.TokenIn,
		"tokenOut", req.TokenOut,
		"amountIn", req.AmountIn)

	if req.QuoteID == "" {
		h.logger.Error("quote request missing quote_id")
		return protocol.NewQuoteReject("", protocol.RejectInternalError, "quote_id is required")
	}
	if req.Deadline <= time.Now().Unix() {
		h.logger.Error("quote request already expired", "quoteId", req.QuoteID, "deadline", req.Deadline)
		return protocol.NewQuoteReject(req.QuoteID, protocol.RejectInternalError, "deadline already expired")
	}

	domain := h.domains.Domain(req.ChainID)
	if domain == nil {
		h.logger.Error("chain not configured", "chainId", req.ChainID)
		return protocol.NewQuoteReject(req.QuoteID, protocol.RejectUnsupportedPair,
			"chain not configured")
	}

	result, err := h.engine.Price(req)
	if err != nil {
		var rej *RejectError
		if errors.As(err, &rej) {
			h.logger.Warn("quote rejected", "quoteId", req.QuoteID, "reason", rej.Reason, "message", rej.Message)
			return protocol.NewQuoteReject(req.QuoteID, rej.Reason, rej.Message)
		}
		h.logger.Error("quote pricing failed", "quoteId", req.QuoteID, "error", err)
		return protocol.NewQuoteReject(req.QuoteID, protocol.RejectInternalError, err.Error())
	}

	if ctx.Err() != nil {
		h.logger.Warn("quote budget exhausted before signing", "quoteId", req.QuoteID)
		return protocol.NewQuoteReject(req.QuoteID, protocol.RejectInternalError, "quote timeout exceeded")
	}

	amountIn, _ := new(big.Int).SetString(req.AmountIn, 10)
	nonce, ok := new(big.Int).SetString(req.Nonce, 10)
	if !ok {
		nonce = big.NewInt(0)
	}

	// The signature binds the original request tokens and the taker-supplied
	// nonce and deadline; from and to are both the recipient.
	recipient := common.HexToAddress(req.Recipient)
	mmQuote := &signer.MMQuote{
		Manager:     domain.VerifyingContract,
		From:        recipient,
		To:          recipient,
		InputToken:  common.HexToAddress(req.TokenIn),
		OutputToken: common.HexToAddress(req.TokenOut),
		AmountIn:    amountIn,
		AmountOut:   result.AmountOut,
		Deadline:    big.NewInt(req.Deadline),
		Nonce:       nonce,
		ExtraData:   []byte{},
	}

	sig, err := h.signer.SignMMQuote(req.ChainID, mmQuote)
	if err != nil {
		h.logger.Error("signing failed", "quoteId", req.QuoteID, "error", err)
		return protocol.NewQuoteReject(req.QuoteID, protocol.RejectInternalError, "signing failed")
	}

	h.logger.Info("quote signed",
		"quoteId", req.QuoteID,
		"amountOut", result.AmountOut.String(),
		"spreadBps", result.SpreadBps)

	return &protocol.QuoteResponse{
		Type:    protocol.TypeQuoteResponse,
		QuoteID: req.QuoteID,
		Status:  protocol.QuoteStatusSuccess,
		Order: &protocol.SignedOrder{
			Signer:      strings.ToLower(h.signer.Address().Hex()),
			Manager:     strings.ToLower(domain.VerifyingContract.Hex()),
			From:        strings.ToLower(recipient.Hex()),
			To:          strings.ToLower(recipient.Hex()),
			InputToken:  strings.ToLower(req.TokenIn),
			OutputToken: strings.ToLower(req.TokenOut),
			AmountIn:    amountIn.String(),
			AmountOut:   result.AmountOut.String(),
			Deadline:    req.Deadline,
			Nonce:       req.Nonce,
			ExtraData:   signer.ExtraDataHex,
			Signature:   signer.SignatureHex(sig),
		},
	}
}
