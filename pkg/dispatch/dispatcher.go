// Package dispatch turns one logical review request into a resilient call
// against a prioritized list of models: cache lookup, bounded retries with
// backoff, fallback across models, and a cache write on success.
package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/argus-ai/argus/pkg/models"
	"github.com/argus-ai/argus/pkg/registry"
)

// recentLogSize bounds the dispatcher's failure history for diagnostics.
const recentLogSize = 20

// Cache is the subset of the review cache the dispatcher needs.
type Cache interface {
	Get(key string) (models.ReviewResult, bool)
	Put(key string, res models.ReviewResult) error
}

// Caller executes a single provider call. Implementations must respect the
// context deadline.
type Caller interface {
	Complete(ctx context.Context, m registry.Model, p models.Prompt) (string, error)
}

// Request is one review to dispatch. Fingerprint is the precomputed cache
// key; Model optionally forces a specific model to the front of the
// fallback order; NoFallback restricts the order to its first entry.
// CallID tags failure records so they correlate with the caller's logs.
type Request struct {
	Fingerprint string
	CallID      string
	Model       string
	Prompt      models.Prompt
	NoCache     bool
	NoFallback  bool
}

// Dispatcher routes review requests across models. Safe for concurrent use:
// the cache handles its own synchronization, and the runtime default model
// and failure log are guarded by a mutex.
type Dispatcher struct {
	reg    *registry.Registry
	cache  Cache // nil disables caching
	caller Caller
	policy Policy

	mu        sync.Mutex
	defaultID string
	recent    []FailureRecord
}

// New creates a Dispatcher. The session default model starts as the
// registry's configured default.
func New(reg *registry.Registry, cache Cache, caller Caller, policy Policy) *Dispatcher {
	return &Dispatcher{
		reg:       reg,
		cache:     cache,
		caller:    caller,
		policy:    policy,
		defaultID: reg.DefaultID(),
	}
}

// Default returns the current session default model.
func (d *Dispatcher) Default() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultID
}

// SetDefault changes the session default model. The model must exist and
// be enabled.
func (d *Dispatcher) SetDefault(id string) (prev string, err error) {
	m, ok := d.reg.Get(id)
	if !ok {
		return "", &UnknownModelError{ID: id}
	}
	if !m.Enabled {
		return "", &ModelDisabledError{ID: id}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	prev = d.defaultID
	d.defaultID = id
	return prev, nil
}

// Review executes one request to a terminal outcome. Only a successful
// terminal outcome writes to the cache; failed attempts never pollute it,
// so a later identical request legitimately re-attempts all providers.
func (d *Dispatcher) Review(ctx context.Context, req Request) Outcome {
	if d.cache != nil && !req.NoCache && req.Fingerprint != "" {
		if res, ok := d.cache.Get(req.Fingerprint); ok {
			return Outcome{Status: StatusCacheHit, Result: res}
		}
	}

	order := d.reg.FallbackOrder(req.Model, d.Default())
	if req.NoFallback && len(order) > 1 {
		order = order[:1]
	}

	var failures []ModelFailure
	for _, id := range order {
		m, ok := d.reg.Get(id)
		if !ok {
			continue
		}

		for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
			if ctx.Err() != nil {
				failures = append(failures, ModelFailure{ModelID: id, Kind: KindPermanent, Err: ctx.Err()})
				return Outcome{Status: StatusAllFailed, Failures: failures}
			}

			callCtx, cancel := context.WithTimeout(ctx, m.Timeout)
			start := time.Now()
			verdict, err := d.caller.Complete(callCtx, m, req.Prompt)
			cancel()

			if err == nil {
				res := models.ReviewResult{
					Verdict: verdict,
					Model:   id,
					Latency: time.Since(start),
				}
				if d.cache != nil && !req.NoCache && req.Fingerprint != "" {
					if perr := d.cache.Put(req.Fingerprint, res); perr != nil {
						log.Printf("dispatch: cache write failed: %v", perr)
					}
				}
				return Outcome{Status: StatusSuccess, Result: res, Attempts: attempt}
			}

			// The caller cancelled the whole request: stop issuing attempts.
			if ctx.Err() != nil {
				failures = append(failures, ModelFailure{ModelID: id, Kind: KindPermanent, Err: ctx.Err()})
				return Outcome{Status: StatusAllFailed, Failures: failures}
			}

			kind := Classify(err)
			d.record(req.CallID, id, attempt, kind, err)

			if kind == KindTransient && attempt < d.policy.MaxAttempts {
				if serr := sleep(ctx, d.policy.Delay(attempt)); serr != nil {
					failures = append(failures, ModelFailure{ModelID: id, Kind: KindPermanent, Err: serr})
					return Outcome{Status: StatusAllFailed, Failures: failures}
				}
				continue
			}

			// Permanent failure or attempt budget exhausted: advance.
			failures = append(failures, ModelFailure{ModelID: id, Kind: kind, Err: err})
			break
		}
	}

	return Outcome{Status: StatusAllFailed, Failures: failures}
}

// checkTimeout bounds one diagnostic connectivity check.
const checkTimeout = 15 * time.Second

// CheckModel issues one minimal completion against the model to verify
// endpoint reachability and credentials. No retries, no fallback, no cache
// involvement; the reply text is discarded.
func (d *Dispatcher) CheckModel(ctx context.Context, id string) error {
	m, ok := d.reg.Get(id)
	if !ok {
		return &UnknownModelError{ID: id}
	}
	if !m.Enabled {
		return &ModelDisabledError{ID: id}
	}

	m.MaxTokens = 5
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	_, err := d.caller.Complete(ctx, m, models.Prompt{User: "Hi"})
	return err
}

// Recent returns the most recent classified failures, newest last.
func (d *Dispatcher) Recent() []FailureRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]FailureRecord, len(d.recent))
	copy(out, d.recent)
	return out
}

func (d *Dispatcher) record(callID, modelID string, attempt int, kind Kind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recent = append(d.recent, FailureRecord{
		Time:    time.Now(),
		Call:    callID,
		ModelID: modelID,
		Attempt: attempt,
		Kind:    kind,
		Detail:  err.Error(),
	})
	if len(d.recent) > recentLogSize {
		d.recent = d.recent[len(d.recent)-recentLogSize:]
	}
}
