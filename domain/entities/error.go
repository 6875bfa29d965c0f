package entities

import "fmt"

// ErrorDetail is the structured error representation that crosses the
// host/guest boundary inside response envelopes. The shape must remain
// stable and backward compatible.
//
// Error Types: "timeout", "permission", "dispatch", "internal"
type ErrorDetail struct {
	Message   string       `json:"message"`
	Type      string       `json:"type"`
	Code      string       `json:"code,omitempty"`
	IsTimeout bool         `json:"is_timeout,omitempty"`
	Wrapped   *ErrorDetail `json:"wrapped,omitempty"`
}

func (e *ErrorDetail) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
