// Package wireformat defines the JSON wire format structures for
// communication between the host and its guest engines. These types must
// remain stable and backward compatible as they define the boundary
// contract.
//
// Event name grammar: "<prefix>:<module>:<method>" routes to a module
// handler, "bus:<event>" passes through to the host event bus, and any
// other string is a bare bus event name.
package wireformat

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/GoAskAway/askit-sdk/domain/entities"
)

// ErrorDetail is re-exported from entities for boundary code that only
// imports wireformat.
type ErrorDetail = entities.ErrorDetail

// Envelope is the frame every wire message travels in.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Encode marshals the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %q: %w", e.Event, err)
	}
	return data, nil
}

// DecodeEnvelope parses a wire frame. An envelope with an empty event name
// is rejected; there is nothing to route it by.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event name")
	}
	return e, nil
}

// Correlated is implemented by payloads that carry a correlation id
// pairing an outbound request with its eventual inbound response.
type Correlated interface {
	CorrelationID() string
}

// Request is the payload of an outbound correlated request event.
type Request struct {
	RequestID string `json:"requestId"`
	Body      any    `json:"body,omitempty"`
}

// CorrelationID implements Correlated.
func (r Request) CorrelationID() string { return r.RequestID }

// Response is the payload of an inbound correlated response event. Error
// and Body are mutually exclusive by convention, not enforcement.
type Response struct {
	RequestID string       `json:"requestId"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Body      any          `json:"body,omitempty"`
}

// CorrelationID implements Correlated.
func (r Response) CorrelationID() string { return r.RequestID }

// CorrelationID extracts the correlation id from an arbitrary inbound
// payload. It understands Correlated implementations and decoded JSON
// objects carrying a "requestId" key; anything else yields "".
func CorrelationID(payload any) string {
	// Concrete pointer cases come first: a nil *Request satisfies
	// Correlated but would panic inside the promoted value receiver.
	switch v := payload.(type) {
	case *Request:
		if v != nil {
			return v.RequestID
		}
	case *Response:
		if v != nil {
			return v.RequestID
		}
	case Correlated:
		return v.CorrelationID()
	case map[string]any:
		id, _ := v["requestId"].(string)
		return id
	}
	return ""
}

// NewRequestID returns a fresh correlation id. Uniqueness per in-flight
// call on a response event is the caller's obligation; a UUID satisfies it
// trivially.
func NewRequestID() string {
	return uuid.NewString()
}
