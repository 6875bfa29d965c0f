package dispatch

import "strings"

const (
	// DefaultPrefix is the fixed prefix token of module-routed events:
	// "askit:<module>:<method>".
	DefaultPrefix = "askit"

	// busPrefix marks passthrough events: "bus:<event>" delivers <event>
	// to the host bus's local listeners.
	busPrefix = "bus:"
)

// Route is the module/method pair decoded from a module-routed event name.
type Route struct {
	Module string
	Method string
}

// ParseEventName recognizes events of the form "<prefix>:<module>:<method>":
// exactly two colon-delimited segments after the prefix token, both
// non-empty. Any other segment count, prefix, or an empty module/method
// yields ok == false. Pure and total.
func ParseEventName(prefix, event string) (Route, bool) {
	parts := strings.Split(event, ":")
	if len(parts) != 3 {
		return Route{}, false
	}
	if parts[0] != prefix || parts[1] == "" || parts[2] == "" {
		return Route{}, false
	}
	return Route{Module: parts[1], Method: parts[2]}, true
}
