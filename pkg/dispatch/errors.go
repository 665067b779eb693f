package dispatch

import "fmt"

// UnknownModelError reports a model identifier absent from the registry.
type UnknownModelError struct {
	ID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q", e.ID)
}

// ModelDisabledError reports a model with no credential configured.
type ModelDisabledError struct {
	ID string
}

func (e *ModelDisabledError) Error() string {
	return fmt.Sprintf("model %q is disabled (no credential configured)", e.ID)
}
