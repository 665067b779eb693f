// Package registry holds the static per-process table of reviewable models.
// The table is built once at startup and never mutated, so it is read
// concurrently without locking.
package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/argus-ai/argus/pkg/config"
)

// Model describes one provider-backed model. Enabled is derived: true iff
// the credential environment variable named in the config was set.
type Model struct {
	ID        string
	Name      string
	Provider  string
	URL       string
	ModelID   string
	APIKey    string
	APIKeyEnv string
	Enabled   bool
	CostPer1K float64
	MaxTokens int
	Timeout   time.Duration
}

// Registry resolves model identifiers to descriptors and computes
// per-request fallback orders.
type Registry struct {
	models    []Model // declared priority order
	index     map[string]int
	defaultID string
}

// New builds a Registry from configuration, reading credentials from the
// environment. A model without a credential is disabled, not an error.
func New(cfg *config.Config) (*Registry, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("no models configured")
	}

	r := &Registry{
		index:     make(map[string]int, len(cfg.Models)),
		defaultID: cfg.DefaultModel,
	}
	for _, mc := range cfg.Models {
		if _, dup := r.index[mc.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", mc.ID)
		}
		key := os.Getenv(mc.APIKeyEnv)
		m := Model{
			ID:        mc.ID,
			Name:      mc.Name,
			Provider:  mc.Provider,
			URL:       mc.URL,
			ModelID:   mc.ModelID,
			APIKey:    key,
			APIKeyEnv: mc.APIKeyEnv,
			Enabled:   key != "",
			CostPer1K: mc.CostPer1K,
			MaxTokens: mc.MaxTokens,
			Timeout:   time.Duration(mc.TimeoutSeconds) * time.Second,
		}
		r.index[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}

	if _, ok := r.index[r.defaultID]; !ok {
		return nil, fmt.Errorf("default model %q is not in the model table", r.defaultID)
	}
	return r, nil
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Model, bool) {
	i, ok := r.index[id]
	if !ok {
		return Model{}, false
	}
	return r.models[i], true
}

// All returns every configured model in priority order.
func (r *Registry) All() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

// Enabled returns the enabled models in priority order.
func (r *Registry) Enabled() []Model {
	var out []Model
	for _, m := range r.models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// DefaultID returns the configured default model identifier.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// FallbackOrder computes the ordered candidate list for one request: a valid
// enabled override first, then the default (def, or the configured default
// if empty), then the remaining enabled models in priority order. Disabled
// or unknown identifiers are skipped and duplicates removed.
func (r *Registry) FallbackOrder(override, def string) []string {
	if def == "" {
		def = r.defaultID
	}

	var order []string
	seen := make(map[string]bool)
	add := func(id string) {
		if seen[id] {
			return
		}
		if m, ok := r.Get(id); ok && m.Enabled {
			seen[id] = true
			order = append(order, id)
		}
	}

	add(override)
	add(def)
	for _, m := range r.models {
		add(m.ID)
	}
	return order
}
