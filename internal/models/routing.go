// ABOUTME: Grounding modes and retrieval results for the fallback controller
// ABOUTME: Defines the two answer modes and why a request left grounded mode
package models

// Mode is the grounding state of a single request
type Mode string

const (
	// ModeGrounded - retrieved chunks are passed to the composer
	ModeGrounded Mode = "GROUNDED"

	// ModeUngrounded - no context, restrictive instruction set
	ModeUngrounded Mode = "UNGROUNDED"
)

// FallbackReason explains a GROUNDED → UNGROUNDED transition
type FallbackReason string

const (
	FallbackNone              FallbackReason = ""
	FallbackRetrievalDisabled FallbackReason = "retrieval_disabled"
	FallbackNoEvidence        FallbackReason = "no_evidence"
)

// RetrievalResult is the outcome of condensation and retrieval for one request.
// When UsedFallback is true, Chunks is empty.
type RetrievalResult struct {
	StandaloneQuestion string         `json:"standalone_question"`
	Chunks             []ScoredChunk  `json:"chunks"`
	UsedFallback       bool           `json:"used_fallback"`
	Reason             FallbackReason `json:"reason,omitempty"`
}

// Mode returns the grounding mode implied by the result
func (r RetrievalResult) Mode() Mode {
	if r.UsedFallback {
		return ModeUngrounded
	}
	return ModeGrounded
}

// Answer is the sanitized text returned to the caller
type Answer struct {
	Text string `json:"answer"`
}
