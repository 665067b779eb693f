package dispatch

import (
	"time"

	"github.com/argus-ai/argus/pkg/models"
)

// Kind classifies a provider failure. Transient failures are retried on the
// same model up to the attempt budget; permanent failures advance to the
// next model in the fallback order immediately.
type Kind int

const (
	KindTransient Kind = iota
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Status is the terminal state of one review request.
type Status int

const (
	// StatusCacheHit means the result came from the cache and no provider
	// was called.
	StatusCacheHit Status = iota
	// StatusSuccess means a provider produced the result.
	StatusSuccess
	// StatusAllFailed means every model in the fallback order was exhausted.
	StatusAllFailed
)

// ModelFailure records why one model was abandoned.
type ModelFailure struct {
	ModelID string
	Kind    Kind
	Err     error
}

// Outcome is the terminal value returned to the caller. Result is set for
// CacheHit and Success; Attempts counts calls against the model that
// succeeded; Failures lists every abandoned model in the order it was tried.
type Outcome struct {
	Status   Status
	Result   models.ReviewResult
	Attempts int
	Failures []ModelFailure
}

// FailureRecord is one entry in the dispatcher's recent error log. Call is
// the caller-supplied correlation id of the request that hit the failure,
// matching the id in the transport's log lines.
type FailureRecord struct {
	Time    time.Time
	Call    string
	ModelID string
	Attempt int
	Kind    Kind
	Detail  string
}
