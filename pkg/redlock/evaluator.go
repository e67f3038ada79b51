package redlock

import "math"

// decisionReason names why an acquisition attempt was accepted or rejected.
type decisionReason string

const (
	reasonAccepted             decisionReason = ""
	reasonInsufficientConsensus decisionReason = "insufficient consensus"
	reasonTimingViolation      decisionReason = "timing constraint violated"
)

// decision is the pure outcome of evaluating a single acquisition attempt.
type decision struct {
	accepted            bool
	reason              decisionReason
	effectiveValidityMs int64
}

// evaluate composes the quorum check and the timing check for a single
// acquisition attempt. It has no side effects and performs no I/O.
func evaluate(successCount, quorum int, ttlMs, elapsedMs int64, driftFactor float64) decision {
	if successCount < quorum {
		return decision{accepted: false, reason: reasonInsufficientConsensus}
	}

	drift := int64(math.Round(driftFactor * float64(ttlMs)))
	effectiveValidity := ttlMs - elapsedMs - drift

	if effectiveValidity <= 1 {
		return decision{accepted: false, reason: reasonTimingViolation}
	}

	return decision{accepted: true, effectiveValidityMs: effectiveValidity}
}
