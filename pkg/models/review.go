package models

import "time"

// Mode identifies how the code under review was submitted.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeDiff     Mode = "diff"
	ModeMultiple Mode = "multiple"
)

// Prompt is a fully formed, provider-agnostic review request.
type Prompt struct {
	System string
	User   string
}

// FileInput is one file submitted in multiple-files mode.
type FileInput struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Diff    string `json:"diff,omitempty"`
	Stats   string `json:"stats,omitempty"`
}

// ReviewResult is a completed review: the verdict text, the model that
// actually produced it, and how long the provider call took.
type ReviewResult struct {
	Verdict string        `json:"verdict"`
	Model   string        `json:"model"`
	Latency time.Duration `json:"latency"`
}
