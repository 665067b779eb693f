// Package review validates incoming review arguments, detects the review
// mode, and builds the provider-agnostic prompt and cache payload. Nothing
// here touches the network; the dispatch layer treats its outputs as opaque.
package review

import (
	"fmt"
	"strings"

	"github.com/argus-ai/argus/pkg/models"
)

// Input size limits.
const (
	MaxCodeSize       = 200_000 // bytes
	MaxTokensEstimate = 50_000
	MaxFilesCount     = 20
)

// Request carries the arguments of one verify_code call.
type Request struct {
	Code           string             `json:"code,omitempty"`
	Diff           string             `json:"diff,omitempty"`
	Files          []models.FileInput `json:"files,omitempty"`
	TaskContext    string             `json:"task_context"`
	SessionChanges string             `json:"session_changes,omitempty"`
	FilePath       string             `json:"file_path,omitempty"`
	Model          string             `json:"model,omitempty"`
	UseCache       *bool              `json:"use_cache,omitempty"`
	UseFallback    *bool              `json:"use_fallback,omitempty"`
	ProjectStack   ProjectStack       `json:"project_stack,omitempty"`
}

// ProjectStack describes the submitting project's technology stack.
type ProjectStack struct {
	Framework    string `json:"framework,omitempty"`
	Frontend     string `json:"frontend,omitempty"`
	Backend      string `json:"backend,omitempty"`
	Database     string `json:"database,omitempty"`
	Conventions  string `json:"conventions,omitempty"`
	Architecture string `json:"architecture,omitempty"`
}

// CacheEnabled reports whether this request may use the cache (default true).
func (r *Request) CacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}

// FallbackEnabled reports whether this request may fall back to other
// models (default true).
func (r *Request) FallbackEnabled() bool {
	return r.UseFallback == nil || *r.UseFallback
}

// ValidationError reports malformed or oversized input. It is raised before
// dispatch; the dispatcher never sees an invalid request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Msg
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// DetectMode determines the review mode from which inputs are present.
// Diff takes precedence over files, files over single-file code.
func DetectMode(r *Request) (models.Mode, error) {
	switch {
	case r.Diff != "":
		return models.ModeDiff, nil
	case len(r.Files) > 0:
		return models.ModeMultiple, nil
	case r.Code != "":
		return models.ModeSingle, nil
	default:
		return "", validationf("no code provided: use 'code', 'diff', or 'files'")
	}
}

// estimateTokens assumes roughly 4 bytes per token.
func estimateTokens(text string) int {
	return len(text) / 4
}

// Validate checks size limits and structural requirements for the request.
func Validate(r *Request) error {
	if _, err := DetectMode(r); err != nil {
		return err
	}
	if strings.TrimSpace(r.TaskContext) == "" {
		return validationf("task_context is required")
	}

	if r.Code != "" {
		if err := validateCodeSize(r.Code, "single file"); err != nil {
			return err
		}
	}
	if r.Diff != "" {
		if err := validateDiff(r.Diff); err != nil {
			return err
		}
	}
	if len(r.Files) > 0 {
		if err := validateFiles(r.Files); err != nil {
			return err
		}
	}
	return nil
}

func validateCodeSize(code, what string) error {
	if len(code) > MaxCodeSize {
		return validationf("%s too large: %d bytes (max %d)", what, len(code), MaxCodeSize)
	}
	if tokens := estimateTokens(code); tokens > MaxTokensEstimate {
		return validationf("%s too large: ~%d tokens (max %d)", what, tokens, MaxTokensEstimate)
	}
	return nil
}

func validateDiff(diff string) error {
	if strings.TrimSpace(diff) == "" {
		return validationf("diff is empty")
	}
	if !strings.Contains(diff, "diff --git") {
		return validationf("invalid diff format (expected git diff output)")
	}
	return validateCodeSize(diff, "diff")
}

func validateFiles(files []models.FileInput) error {
	if len(files) > MaxFilesCount {
		return validationf("too many files: %d (max %d)", len(files), MaxFilesCount)
	}
	total := 0
	for i, f := range files {
		if f.Path == "" {
			return validationf("file #%d missing 'path'", i)
		}
		if f.Content == "" && f.Diff == "" {
			return validationf("file #%d (%s) missing 'content' or 'diff'", i, f.Path)
		}
		total += len(f.Content) + len(f.Diff)
	}
	// Multi-file reviews get double the single-file budget.
	if total > MaxCodeSize*2 {
		return validationf("total files size too large: %d bytes (max %d)", total, MaxCodeSize*2)
	}
	return nil
}

// SanitizePath strips path traversal and shell metacharacters from a
// user-supplied file path.
func SanitizePath(path string) string {
	for _, s := range []string{"..", "~", "$", "`", "|", ";", "&"} {
		path = strings.ReplaceAll(path, s, "")
	}
	return strings.TrimSpace(path)
}

// FilePaths extracts the sanitized file paths involved in the request,
// used for language hints.
func FilePaths(r *Request, mode models.Mode) []string {
	switch mode {
	case models.ModeSingle:
		if r.FilePath == "" {
			return nil
		}
		return []string{SanitizePath(r.FilePath)}
	case models.ModeDiff:
		return diffPaths(r.Diff)
	case models.ModeMultiple:
		var paths []string
		for _, f := range r.Files {
			if f.Path != "" {
				paths = append(paths, SanitizePath(f.Path))
			}
		}
		return paths
	}
	return nil
}

// diffPaths parses "diff --git a/x b/x" header lines.
func diffPaths(diff string) []string {
	var paths []string
	for _, line := range strings.Split(diff, "\n") {
		if !strings.HasPrefix(line, "diff --git") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 4 {
			paths = append(paths, SanitizePath(strings.TrimPrefix(parts[3], "b/")))
		}
	}
	return paths
}
