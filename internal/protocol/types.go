package protocol

// Type is the wire message discriminator carried in every frame's "type" field.
type Type string

const (
	TypeAuth          Type = "auth"
	TypeAuthResponse  Type = "auth_response"
	TypeDepthUpdate   Type = "depth_update"
	TypeQuoteRequest  Type = "quote_request"
	TypeQuoteResponse Type = "quote_response"
	TypeQuoteReject   Type = "quote_reject"
	TypeHeartbeat     Type = "heartbeat"
	TypeError         Type = "error"
)

// QuoteStatus is the status field of a quote_response.
type QuoteStatus string

const (
	QuoteStatusSuccess  QuoteStatus = "QUOTE_STATUS_SUCCESS"
	QuoteStatusRejected QuoteStatus = "QUOTE_STATUS_REJECTED"
)

// RejectReason enumerates the reasons carried by a quote_reject.
type RejectReason string

const (
	RejectInsufficientLiquidity RejectReason = "REJECT_REASON_INSUFFICIENT_LIQUIDITY"
	RejectPriceMoved            RejectReason = "REJECT_REASON_PRICE_MOVED"
	RejectUnsupportedPair       RejectReason = "REJECT_REASON_UNSUPPORTED_PAIR"
	RejectRateLimited           RejectReason = "REJECT_REASON_RATE_LIMITED"
	RejectInternalError         RejectReason = "REJECT_REASON_INTERNAL_ERROR"
)

// Hub session defaults, applied when the auth_response config omits a field.
const (
	DefaultDepthPushIntervalMs = 1000
	DefaultQuoteTimeoutMs      = 5000
	DefaultHeartbeatIntervalMs = 30000
)
