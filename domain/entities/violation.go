package entities

import "fmt"

// Violation kinds reported through a ViolationSink.
const (
	// ViolationMissingPermission is reported when a module/method call is
	// not covered by the granted permission set.
	ViolationMissingPermission = "missing_permission"
)

// Violation describes a contract violation observed while dispatching a
// guest message. Violations are reported to a caller-supplied sink; under
// warn mode they are advisory, under deny mode they accompany a blocked
// call.
type Violation struct {
	Kind   string `json:"kind"`
	Module string `json:"module"`
	Method string `json:"method"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s:%s", v.Kind, v.Module, v.Method)
}
