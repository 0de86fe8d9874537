package quote

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/deluthium/darkpool-mm/internal/protocol"
	"github.com/deluthium/darkpool-mm/internal/signer"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()

	domains := signer.NewDefaultDomainManager()
	sgn, err := signer.NewFromHex(
		"0x0000000000000000000000000000000000000000000000000000000000000001", domains)
	if err != nil {
		t.Fatalf("NewFromHex failed: %v", err)
	}

	engine, _ := testEngine(t, testPair())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(engine, sgn, domains, logger)
}

func TestHandler_Handle(t *testing.T) {
	h := testHandler(t)

	req := testRequest()
	req.Nonce = "7"
	req.Deadline = time.Now().Add(time.Minute).Unix()

	frame := h.Handle(context.Background(), req)
	resp, ok := frame.(*protocol.QuoteResponse)
	if !ok {
		t.Fatalf("frame = %T, want *protocol.QuoteResponse", frame)
	}

	if resp.QuoteID != "q-1" {
		t.Errorf("quote_id = %s, want q-1", resp.QuoteID)
	}
	if resp.Status != protocol.QuoteStatusSuccess {
		t.Errorf("status = %s, want %s", resp.Status, protocol.QuoteStatusSuccess)
	}

	order := resp.Order
	if order == nil {
		t.Fatal("order should not be nil")
	}
	// Address derived from private key 0x...01
	if order.Signer != "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf" {
		t.Errorf("signer = %s, want key-1 address", order.Signer)
	}
	if order.Manager != strings.ToLower(signer.RFQManagers[56].Hex()) {
		t.Errorf("manager = %s, want BSC RFQ manager", order.Manager)
	}
	if order.From != order.To || order.From != "0x1234567890123456789012345678901234567890" {
		t.Errorf("from/to = %s/%s, want the recipient twice", order.From, order.To)
	}
	if order.AmountOut != "598200000000000000000" {
		t.Errorf("amount_out = %s, want 598200000000000000000", order.AmountOut)
	}
	if order.Nonce != "7" {
		t.Errorf("nonce = %s, want 7", order.Nonce)
	}
	if order.Deadline != req.Deadline {
		t.Errorf("deadline = %d, want %d", order.Deadline, req.Deadline)
	}
	if order.ExtraData != signer.ExtraDataHex {
		t.Errorf("extra_data = %s, want %s", order.ExtraData, signer.ExtraDataHex)
	}
	// 0x + 65 bytes of hex
	if len(order.Signature) != 132 || !strings.HasPrefix(order.Signature, "0x") {
		t.Errorf("signature = %s, want 0x-prefixed 65-byte hex", order.Signature)
	}
}

func TestHandler_Handle_MissingQuoteID(t *testing.T) {
	h := testHandler(t)

	req := testRequest()
	req.QuoteID = ""
	req.Deadline = time.Now().Add(time.Minute).Unix()

	frame := h.Handle(context.Background(), req)
	rej, ok := frame.(*protocol.QuoteReject)
	if !ok {
		t.Fatalf("frame = %T, want *protocol.QuoteReject", frame)
	}
	if rej.Reason != protocol.RejectInternalError {
		t.Errorf("reason = %s, want %s", rej.Reason, protocol.RejectInternalError)
	}
}

func TestHandler_Handle_ExpiredDeadline(t *testing.T) {
	h := testHandler(t)

	req := testRequest()
	req.Deadline = time.Now().Add(-time.Minute).Unix()

	frame := h.Handle(context.Background(), req)
	rej, ok := frame.(*protocol.QuoteReject)
	if !ok {
		t.Fatalf("frame = %T, want *protocol.QuoteReject", frame)
	}
	if rej.Reason != protocol.RejectInternalError {
		t.Errorf("reason = %s, want %s", rej.Reason, protocol.RejectInternalError)
	}
	if rej.QuoteID != req.QuoteID {
		t.Errorf("quote_id = %s, want %s", rej.QuoteID, req.QuoteID)
	}
}

func TestHandler_Handle_UnconfiguredChain(t *testing.T) {
	h := testHandler(t)

	req := testRequest()
	req.ChainID = 1
	req.Deadline = time.Now().Add(time.Minute).Unix()

	frame := h.Handle(context.Background(), req)
	rej, ok := frame.(*protocol.QuoteReject)
	if !ok {
		t.Fatalf("frame = %T, want *protocol.QuoteReject", frame)
	}
	if rej.Reason != protocol.RejectUnsupportedPair {
		t.Errorf("reason = %s, want %s", rej.Reason, protocol.RejectUnsupportedPair)
	}
}

func TestHandler_Handle_EngineReject(t *testing.T) {
	h := testHandler(t)

	req := testRequest()
	req.AmountIn = "9999999999999999999999" // above max order size
	req.Deadline = time.Now().Add(time.Minute).Unix()

	frame := h.Handle(context.Background(), req)
	rej, ok := frame.(*protocol.QuoteReject)
	if !ok {
		t.Fatalf("frame = %T, want *protocol.QuoteReject", frame)
	}
	if rej.Reason != protocol.RejectInsufficientLiquidity {
		t.Errorf("reason = %s, want %s", rej.Reason, protocol.RejectInsufficientLiquidity)
	}
}

func TestHandler_Handle_BudgetExhausted(t *testing.T) {
	h := testHandler(t)

	req := testRequest()
	req.Deadline = time.Now().Add(time.Minute).Unix()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := h.Handle(ctx, req)
	rej, ok := frame.(*protocol.QuoteReject)
	if !ok {
		t.Fatalf("frame = %T, want *protocol.QuoteReject", frame)
	}
	if rej.Reason != protocol.RejectInternalError {
		t.Errorf("reason = %s, want %s", rej.Reason, protocol.RejectInternalError)
	}
	if rej.Message != "quote timeout exceeded" {
		t.Errorf("message = %q, want quote timeout exceeded", rej.Message)
	}
}
