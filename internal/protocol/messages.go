package protocol

import "time"

// Frame is implemented by every message that can cross the hub connection.
type Frame interface {
	MessageType() Type
}

// Auth is an explicit credential frame. The hub authenticates the WebSocket
// handshake header instead, so this is only sent when the hub asks for it.
type Auth struct {
	Type  Type   `json:"type"`
	Token string `json:"token"`
}

// SessionConfig carries the hub-advertised intervals from auth_response.
type SessionConfig struct {
	DepthPushIntervalMs int64 `json:"depth_push_interval_ms,omitempty"`
	QuoteTimeoutMs      int64 `json:"quote_timeout_ms,omitempty"`
	HeartbeatIntervalMs int64 `json:"heartbeat_interval_ms,omitempty"`
}

// ApplyDefaults fills any unset interval with the hub default.
func (c *SessionConfig) ApplyDefaults() {
	if c.DepthPushIntervalMs == 0 {
		c.DepthPushIntervalMs = DefaultDepthPushIntervalMs
	}
	if c.QuoteTimeoutMs == 0 {
		c.QuoteTimeoutMs = DefaultQuoteTimeoutMs
	}
	if c.HeartbeatIntervalMs == 0 {
		c.HeartbeatIntervalMs = DefaultHeartbeatIntervalMs
	}
}

// DepthPushInterval returns the depth push interval as a duration.
func (c SessionConfig) DepthPushInterval() time.Duration {
	return time.Duration(c.DepthPushIntervalMs) * time.Millisecond
}

// QuoteTimeout returns the per-quote response budget as a duration.
func (c SessionConfig) QuoteTimeout() time.Duration {
	return time.Duration(c.QuoteTimeoutMs) * time.Millisecond
}

// HeartbeatInterval returns the keepalive interval as a duration.
func (c SessionConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// AuthResponse is the first inbound frame on every connection.
type AuthResponse struct {
	Type         Type           `json:"type"`
	Success      bool           `json:"success"`
	SessionID    string         `json:"session_id,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Config       *SessionConfig `json:"config,omitempty"`
}

// QuoteRequest is an inbound per-trade ask relayed by the hub.
type QuoteRequest struct {
	Type        Type   `json:"type"`
	QuoteID     string `json:"quote_id"`
	ChainID     uint64 `json:"chain_id"`
	MMID        string `json:"mm_id,omitempty"`
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	AmountIn    string `json:"amount_in"`
	Recipient   string `json:"recipient"`
	Nonce       string `json:"nonce"`
	Deadline    int64  `json:"deadline"`
	SlippageBps uint32 `json:"slippage_bps,omitempty"`
}

// SignedOrder is the order object inside a quote_response. All amounts are
// decimal strings; signature is 0x-prefixed r||s||v hex.
type SignedOrder struct {
	Signer      string `json:"signer"`
	Manager     string `json:"manager"`
	From        string `json:"from"`
	To          string `json:"to"`
	InputToken  string `json:"input_token"`
	OutputToken string `json:"output_token"`
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	Deadline    int64  `json:"deadline"`
	Nonce       string `json:"nonce"`
	ExtraData   string `json:"extra_data"`
	Signature   string `json:"signature"`
}

// QuoteResponse answers a quote_request with a signed order.
type QuoteResponse struct {
	Type    Type         `json:"type"`
	QuoteID string       `json:"quote_id"`
	Status  QuoteStatus  `json:"status"`
	Order   *SignedOrder `json:"order"`
}

// QuoteReject declines a quote_request.
type QuoteReject struct {
	Type    Type         `json:"type"`
	QuoteID string       `json:"quote_id"`
	Reason  RejectReason `json:"reason"`
	Message string       `json:"message,omitempty"`
}

// PriceLevel is a single depth level. Price is a decimal string, Amount an
// integer string in 18-decimal base units.
type PriceLevel struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// DepthUpdate is an outbound depth snapshot for one pair.
type DepthUpdate struct {
	Type       Type         `json:"type"`
	ChainID    uint64       `json:"chain_id"`
	PairID     string       `json:"pair_id"`
	TokenA     string       `json:"token_a"`
	TokenB     string       `json:"token_b"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	SequenceID uint64       `json:"sequence_id"`
	Timestamp  int64        `json:"timestamp"`
}

// HeartbeatBody distinguishes ping from pong.
type HeartbeatBody struct {
	Ping bool `json:"ping,omitempty"`
	Pong bool `json:"pong,omitempty"`
}

// Heartbeat is a liveness frame in either direction.
type Heartbeat struct {
	Type      Type          `json:"type"`
	Heartbeat HeartbeatBody `json:"heartbeat"`
	Timestamp int64         `json:"timestamp,omitempty"`
}

// ErrorFrame is an inbound hub error notification.
type ErrorFrame struct {
	Type           Type   `json:"type"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
	RelatedQuoteID string `json:"related_quote_id,omitempty"`
}

func (m *Auth) MessageType() Type          { return TypeAuth }
func (m *AuthResponse) MessageType() Type  { return TypeAuthResponse }
func (m *QuoteRequest) MessageType() Type  { return TypeQuoteRequest }
func (m *QuoteResponse) MessageType() Type { return TypeQuoteResponse }
func (m *QuoteReject) MessageType() Type   { return TypeQuoteReject }
func (m *DepthUpdate) MessageType() Type   { return TypeDepthUpdate }
func (m *Heartbeat) MessageType() Type     { return TypeHeartbeat }
func (m *ErrorFrame) MessageType() Type    { return TypeError }

// NewHeartbeatPing builds an outbound keepalive ping.
func NewHeartbeatPing() *Heartbeat {
	return &Heartbeat{
		Type:      TypeHeartbeat,
		Heartbeat: HeartbeatBody{Ping: true},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewHeartbeatPong builds the echo reply to an inbound ping.
func NewHeartbeatPong() *Heartbeat {
	return &Heartbeat{
		Type:      TypeHeartbeat,
		Heartbeat: HeartbeatBody{Pong: true},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewQuoteReject builds a quote_reject for the given request ID.
func NewQuoteReject(quoteID string, reason RejectReason, message string) *QuoteReject {
	return &QuoteReject{
		Type:    TypeQuoteReject,
		QuoteID: quoteID,
		Reason:  reason,
		Message: message,
	}
}
