package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the minimal probe used to dispatch on the type discriminator.
type envelope struct {
	Type Type `json:"type"`
}

// Sniff extracts the type discriminator from a raw frame without decoding
// the payload. Unknown values are returned as-is; the caller decides whether
// to ignore them.
func Sniff(data []byte) (Type, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("frame missing type discriminator")
	}
	return env.Type, nil
}

// Encode serializes an outbound frame.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.MessageType(), err)
	}
	return data, nil
}

// DecodeAuthResponse parses an auth_response frame.
func DecodeAuthResponse(data []byte) (*AuthResponse, error) {
	var msg AuthResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode auth_response: %w", err)
	}
	return &msg, nil
}

// DecodeQuoteRequest parses a quote_request frame.
func DecodeQuoteRequest(data []byte) (*QuoteRequest, error) {
	var msg QuoteRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode quote_request: %w", err)
	}
	return &msg, nil
}

// DecodeHeartbeat parses a heartbeat frame.
func DecodeHeartbeat(data []byte) (*Heartbeat, error) {
	var msg Heartbeat
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode heartbeat: %w", err)
	}
	return &msg, nil
}

// DecodeError parses an error frame.
func DecodeError(data []byte) (*ErrorFrame, error) {
	var msg ErrorFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode error frame: %w", err)
	}
	return &msg, nil
}
