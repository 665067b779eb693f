package mcp

import (
	"context"
	"encoding/json"
	"strings"

	cachepkg "github.com/argus-ai/argus/pkg/cache/sqlite"
	"github.com/argus-ai/argus/pkg/dispatch"
	"github.com/argus-ai/argus/pkg/review"
)

// toolHandler handles one tool call. callID is the correlation id the
// transport logged for this call; handlers thread it into dispatch so
// failure records and error output point back to the same log line.
type toolHandler func(ctx context.Context, s *Server, callID string, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"verify_code":         handleVerifyCode,
	"list_models":         handleListModels,
	"set_default_model":   handleSetDefaultModel,
	"cache_stats":         handleCacheStats,
	"retry_with_fallback": handleRetryWithFallback,
	"diagnose":            handleDiagnose,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name: "verify_code",
		Description: "Review code through an external AI model with retry, fallback and caching. " +
			"Modes: single file (code + file_path), git diff (diff), or multiple files (files[]).",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"task_context"},
			"properties": map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "[Single file] Full content of one file",
				},
				"file_path": map[string]any{
					"type":        "string",
					"description": "[Single file] Path of the file, used for language-specific checks",
				},
				"diff": map[string]any{
					"type":        "string",
					"description": "[Git diff] Unified git diff output",
				},
				"files": map[string]any{
					"type":        "array",
					"description": "[Multiple files] Files with content and/or per-file diff",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"path"},
						"properties": map[string]any{
							"path":    map[string]any{"type": "string"},
							"content": map[string]any{"type": "string"},
							"diff":    map[string]any{"type": "string"},
							"stats":   map[string]any{"type": "string", "description": "Change stats, e.g. '+79 -11'"},
						},
					},
				},
				"task_context": map[string]any{
					"type":        "string",
					"description": "What the code should do",
				},
				"session_changes": map[string]any{
					"type":        "string",
					"description": "Brief description of the changes made in this session",
				},
				"model": map[string]any{
					"type":        "string",
					"description": "Model to try first (optional, defaults to the session default)",
				},
				"use_cache": map[string]any{
					"type":        "boolean",
					"description": "Use the result cache (default true)",
				},
				"use_fallback": map[string]any{
					"type":        "boolean",
					"description": "Fall back to other models on failure (default true)",
				},
				"project_stack": map[string]any{
					"type":        "object",
					"description": "Project technology stack for more accurate review",
					"properties": map[string]any{
						"framework":    map[string]any{"type": "string"},
						"frontend":     map[string]any{"type": "string"},
						"backend":      map[string]any{"type": "string"},
						"database":     map[string]any{"type": "string"},
						"conventions":  map[string]any{"type": "string"},
						"architecture": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
	{
		Name:        "list_models",
		Description: "List all configured AI models: availability, provider, cost and the current default.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "set_default_model",
		Description: "Set the default model for this session. Applies to all later reviews without an explicit model.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"model"},
			"properties": map[string]any{
				"model": map[string]any{
					"type":        "string",
					"description": "Model identifier to make the default",
				},
			},
		},
	},
	{
		Name:        "cache_stats",
		Description: "Show review cache statistics: entries, hits, misses, evictions and hit rate.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name: "retry_with_fallback",
		Description: "Retry the last failed code review with fallback models enabled, " +
			"using the exact same code and parameters.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "diagnose",
		Description: "Show credential status for every model and the most recent provider failures.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleVerifyCode(ctx context.Context, s *Server, callID string, rawArgs json.RawMessage) ToolCallResult {
	var req review.Request
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &req); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	return s.runVerify(ctx, callID, &req)
}

// runVerify is the shared path for verify_code and retry_with_fallback.
func (s *Server) runVerify(ctx context.Context, callID string, req *review.Request) ToolCallResult {
	if err := review.Validate(req); err != nil {
		return errorResult(err.Error())
	}
	mode, err := review.DetectMode(req)
	if err != nil {
		return errorResult(err.Error())
	}

	prompt := review.BuildPrompt(req, mode)
	payload := review.Payload(req, mode)
	langs := review.LanguageNames(review.FilePaths(req, mode))
	fingerprint := cachepkg.Fingerprint(payload, mode, strings.Join(langs, ","))

	outcome := s.dispatcher.Review(ctx, dispatch.Request{
		Fingerprint: fingerprint,
		CallID:      callID,
		Model:       req.Model,
		Prompt:      prompt,
		NoCache:     !req.CacheEnabled(),
		NoFallback:  !req.FallbackEnabled(),
	})

	if outcome.Status == dispatch.StatusAllFailed {
		s.setLastFailed(req)
		return errorResult(formatOutcome(outcome) + "\n\ncall id: " + callID)
	}
	return textResult(formatOutcome(outcome))
}

func handleListModels(_ context.Context, s *Server, _ string, _ json.RawMessage) ToolCallResult {
	return textResult(formatModels(s.reg.All(), s.dispatcher.Default()))
}

type setDefaultArgs struct {
	Model string `json:"model"`
}

func handleSetDefaultModel(_ context.Context, s *Server, _ string, rawArgs json.RawMessage) ToolCallResult {
	var args setDefaultArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Model == "" {
		return errorResult("model is required")
	}

	prev, err := s.dispatcher.SetDefault(args.Model)
	if err != nil {
		return errorResult(err.Error())
	}
	if prev == args.Model {
		return textResult("Default model is already " + args.Model + ".")
	}
	return textResult("Default model changed from " + prev + " to " + args.Model + ".")
}

func handleCacheStats(_ context.Context, s *Server, _ string, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats()
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleRetryWithFallback(ctx context.Context, s *Server, callID string, _ json.RawMessage) ToolCallResult {
	last := s.lastFailedRequest()
	if last == nil {
		return errorResult("No failed verification found to retry.")
	}

	retry := *last
	enabled := true
	retry.UseFallback = &enabled

	result := s.runVerify(ctx, callID, &retry)
	if !result.IsError {
		s.clearLastFailed()
	}
	return result
}

func handleDiagnose(ctx context.Context, s *Server, _ string, _ json.RawMessage) ToolCallResult {
	var checks []modelCheck
	for _, m := range s.reg.All() {
		check := modelCheck{model: m}
		switch {
		case !m.Enabled:
			check.status = "skipped (no key)"
		default:
			if err := s.dispatcher.CheckModel(ctx, m.ID); err != nil {
				check.status = "failed: " + err.Error()
			} else {
				check.status = "connected"
			}
		}
		checks = append(checks, check)
	}
	return textResult(formatDiagnostics(checks, s.dispatcher.Recent()))
}
