package ports

import "github.com/GoAskAway/askit-sdk/domain/entities"

// ViolationSink receives contract violations observed during dispatch.
// Implementations can log, collect metrics, or surface them to the user.
type ViolationSink func(v entities.Violation)

// NopSink discards violations. Used when the caller supplies no sink.
func NopSink(entities.Violation) {}
