package review

import (
	"fmt"
	"strings"

	"github.com/argus-ai/argus/pkg/models"
)

const systemPromptBase = `ROLE: Senior QA Engineer & Security Auditor.
GOAL: Perform a rigorous code review with a zero-trust mindset.

INSTRUCTIONS:
1. ANALYZE the code for logic errors, security (OWASP), performance, and maintainability.
2. CATEGORIZE findings strictly into three levels:
   - "Must Fix" (critical bugs, security flaws, crashes)
   - "Should Fix" (logic gaps, risky patterns, poor UX)
   - "Suggestions" (style, optimizations, best practices)
3. BE SPECIFIC: quote the exact file path and line, or the specific logic error.`

var modeInstructions = map[models.Mode]string{
	models.ModeSingle:   "You are reviewing one complete file.",
	models.ModeDiff:     "You are reviewing a git diff. Only review the changed lines; use context lines for understanding only.",
	models.ModeMultiple: "You are reviewing multiple related files. Check cross-file consistency: call sites, shared types, contracts between files.",
}

// BuildPrompt assembles the provider-agnostic prompt for a validated request.
func BuildPrompt(r *Request, mode models.Mode) models.Prompt {
	return models.Prompt{
		System: buildSystemPrompt(r, mode),
		User:   buildUserMessage(r, mode),
	}
}

func buildSystemPrompt(r *Request, mode models.Mode) string {
	var b strings.Builder
	b.WriteString(systemPromptBase)
	b.WriteString("\n\n")
	b.WriteString(modeInstructions[mode])

	for _, p := range FilePaths(r, mode) {
		if hint := LanguageHint(p); hint != "" {
			b.WriteString("\n\n")
			b.WriteString(hint)
			break // one hint per language is enough; first path wins
		}
	}

	if stack := formatStack(r.ProjectStack); stack != "" {
		b.WriteString("\n\nPROJECT STACK:\n")
		b.WriteString(stack)
	}
	return b.String()
}

func formatStack(s ProjectStack) string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, v))
		}
	}
	add("Framework", s.Framework)
	add("Frontend", s.Frontend)
	add("Backend", s.Backend)
	add("Database", s.Database)
	add("Conventions", s.Conventions)
	add("Architecture", s.Architecture)
	return strings.Join(lines, "\n")
}

func buildUserMessage(r *Request, mode models.Mode) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Task Context\n%s\n", r.TaskContext)
	if r.SessionChanges != "" {
		fmt.Fprintf(&b, "\n## Session Changes\n%s\n", r.SessionChanges)
	}

	b.WriteString("\n")
	b.WriteString(formatCode(r, mode))
	return b.String()
}

// formatCode renders the condensed code sections. Full file contents pass
// through CondenseCode, so the left column of each code fence is the
// original line number; diffs pass through condenseDiff.
func formatCode(r *Request, mode models.Mode) string {
	var b strings.Builder
	switch mode {
	case models.ModeSingle:
		path := SanitizePath(r.FilePath)
		if path == "" {
			path = "unknown"
		}
		c := CondenseCode(r.Code, r.FilePath)
		fmt.Fprintf(&b, "## Code to Review: %s (condensed %d -> %d lines; left column is the original line number)\n```\n%s\n```\n",
			path, c.OriginalLines, c.KeptLines, c.Content)

	case models.ModeDiff:
		fmt.Fprintf(&b, "## Git Diff\n```diff\n%s\n```\n", condenseDiff(r.Diff))

	case models.ModeMultiple:
		if deps := dependencySummary(r.Files); deps != "" {
			b.WriteString(deps)
			b.WriteString("\n")
		}
		b.WriteString("## Files to Review (left column of code fences is the original line number)\n")
		for _, f := range r.Files {
			path := SanitizePath(f.Path)
			if f.Stats != "" {
				fmt.Fprintf(&b, "\n### %s (%s)\n", path, f.Stats)
			} else {
				fmt.Fprintf(&b, "\n### %s\n", path)
			}
			if f.Diff != "" {
				fmt.Fprintf(&b, "```diff\n%s\n```\n", condenseDiff(f.Diff))
			} else {
				fmt.Fprintf(&b, "```\n%s\n```\n", CondenseCode(f.Content, f.Path).Content)
			}
		}
	}
	return b.String()
}

// Payload returns the normalized code payload the cache fingerprint is
// computed over. It covers the semantic inputs only: condensed code
// content, task context and file identity. It excludes the model, cache
// flags and presentation-level formatting, so two requests differing only
// in noise lines (blank lines, stripped comments) fingerprint the same.
func Payload(r *Request, mode models.Mode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "task\x00%s\x00", strings.TrimSpace(r.TaskContext))

	switch mode {
	case models.ModeSingle:
		fmt.Fprintf(&b, "path\x00%s\x00code\x00%s", SanitizePath(r.FilePath), CondenseCode(r.Code, r.FilePath).Stripped)
	case models.ModeDiff:
		fmt.Fprintf(&b, "diff\x00%s", condenseDiff(r.Diff))
	case models.ModeMultiple:
		for _, f := range r.Files {
			fmt.Fprintf(&b, "file\x00%s\x00%s\x00%s\x00",
				SanitizePath(f.Path), CondenseCode(f.Content, f.Path).Stripped, condenseDiff(f.Diff))
		}
	}
	return b.String()
}
