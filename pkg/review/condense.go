package review

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/argus-ai/argus/pkg/models"
)

// Condensing strips review-irrelevant lines before prompting so large
// inputs spend fewer tokens: blank lines, comment-only lines without an
// action marker, debug prints, and import blocks (summarized to one line).
// Kept lines carry their original line number so the model's references
// stay accurate against the submitted file.

// Condensed is the reduced form of one source file.
type Condensed struct {
	// Content is the numbered representation shown to the model.
	Content string
	// Stripped is the kept lines without numbering. The cache payload is
	// built from it, so edits that only touch stripped lines fingerprint
	// identically.
	Stripped string
	// Imports are the module names collapsed out of the import lines.
	Imports       []string
	OriginalLines int
	KeptLines     int
}

// actionComment matches comments that carry follow-up work and must
// survive condensing.
var actionComment = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX|BUG|NOTE)\b`)

var quotedModule = regexp.MustCompile(`['"]([^'"]+)['"]`)

// commentMarker returns the line-comment prefix for the file's language,
// or "" when unknown; unknown languages get no comment stripping.
func commentMarker(ext string) string {
	switch ext {
	case ".py", ".rb", ".sh":
		return "#"
	case ".go", ".js", ".ts", ".jsx", ".tsx", ".vue", ".java", ".rs", ".php", ".c", ".h", ".cpp":
		return "//"
	}
	return ""
}

func isJSFamily(ext string) bool {
	switch ext {
	case ".js", ".ts", ".jsx", ".tsx", ".vue":
		return true
	}
	return false
}

// CondenseCode reduces one file's content for review. The path picks the
// language rules; an unrecognized extension only drops blank lines.
func CondenseCode(code, path string) Condensed {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	ext := strings.ToLower(filepath.Ext(path))
	marker := commentMarker(ext)

	var imports []string
	type keptLine struct {
		num  int
		text string
	}
	var kept []keptLine
	inImportBlock := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if ext == ".go" && trimmed == "import (" {
			inImportBlock = true
			continue
		}
		if inImportBlock {
			if trimmed == ")" {
				inImportBlock = false
			} else if m := quotedModule.FindStringSubmatch(trimmed); m != nil {
				imports = append(imports, m[1])
			}
			continue
		}
		if mods := importModules(trimmed, ext); len(mods) > 0 {
			imports = append(imports, mods...)
			continue
		}
		if isNoise(trimmed, marker, ext) {
			continue
		}
		kept = append(kept, keptLine{num: i + 1, text: line})
	}

	var summary string
	if len(imports) > 0 {
		imports = sortedUnique(imports)
		m := marker
		if m == "" {
			m = "#"
		}
		summary = fmt.Sprintf("%s imports: %s", m, strings.Join(imports, ", "))
	}

	var content, stripped strings.Builder
	if summary != "" {
		content.WriteString(summary + "\n")
		stripped.WriteString(summary + "\n")
	}
	for _, k := range kept {
		fmt.Fprintf(&content, "%4d | %s\n", k.num, k.text)
		stripped.WriteString(k.text + "\n")
	}

	return Condensed{
		Content:       strings.TrimRight(content.String(), "\n"),
		Stripped:      strings.TrimRight(stripped.String(), "\n"),
		Imports:       imports,
		OriginalLines: len(lines),
		KeptLines:     len(kept),
	}
}

// isNoise reports whether a line adds nothing to a review: blank lines,
// comments without an action marker, debug prints, bare pass statements.
func isNoise(trimmed, marker, ext string) bool {
	if trimmed == "" {
		return true
	}
	if marker != "" && strings.HasPrefix(trimmed, marker) && !actionComment.MatchString(trimmed) {
		return true
	}
	if isJSFamily(ext) {
		if strings.HasPrefix(trimmed, "/*") && strings.HasSuffix(trimmed, "*/") && !actionComment.MatchString(trimmed) {
			return true
		}
		if strings.HasPrefix(trimmed, "console.log(") {
			return true
		}
	}
	if ext == ".py" && trimmed == "pass" {
		return true
	}
	return false
}

// importModules extracts the modules named by a single import line.
func importModules(trimmed, ext string) []string {
	switch {
	case ext == ".py" && strings.HasPrefix(trimmed, "import "):
		var mods []string
		for _, part := range strings.Split(trimmed[len("import "):], ",") {
			name, _, _ := strings.Cut(strings.TrimSpace(part), " as ")
			if name = strings.TrimSpace(name); name != "" {
				mods = append(mods, name)
			}
		}
		return mods

	case ext == ".py" && strings.HasPrefix(trimmed, "from "):
		name, _, ok := strings.Cut(trimmed[len("from "):], " import ")
		if !ok {
			return nil
		}
		return []string{strings.TrimSpace(name)}

	case isJSFamily(ext) && (strings.HasPrefix(trimmed, "import ") ||
		(strings.HasPrefix(trimmed, "const ") && strings.Contains(trimmed, "require("))):
		if m := quotedModule.FindStringSubmatch(trimmed); m != nil {
			return []string{m[1]}
		}
		return nil

	case ext == ".go" && strings.HasPrefix(trimmed, "import "):
		if m := quotedModule.FindStringSubmatch(trimmed); m != nil {
			return []string{m[1]}
		}
		return nil
	}
	return nil
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// condenseDiff keeps the structural parts of a unified diff: file headers,
// hunk headers and change lines. Index and mode chatter is dropped.
func condenseDiff(diff string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "index "),
			strings.HasPrefix(line, "--- "),
			strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "new file mode"),
			strings.HasPrefix(line, "deleted file mode"),
			strings.HasPrefix(line, "old mode"),
			strings.HasPrefix(line, "new mode"),
			strings.HasPrefix(line, "similarity index"),
			strings.HasPrefix(line, "rename from"),
			strings.HasPrefix(line, "rename to"):
			// dropped
		default:
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// dependencySummary lists each file's imported modules so cross-file review
// sees the dependency graph without the full import blocks.
func dependencySummary(files []models.FileInput) string {
	const maxLines = 20

	var lines []string
	for _, f := range files {
		if f.Content == "" {
			continue
		}
		c := CondenseCode(f.Content, f.Path)
		if len(c.Imports) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s -> %s", SanitizePath(f.Path), strings.Join(c.Imports, ", ")))
	}
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > maxLines {
		rest := len(lines) - maxLines
		lines = append(lines[:maxLines], fmt.Sprintf("- ... and %d more", rest))
	}
	return "## Dependencies\n" + strings.Join(lines, "\n") + "\n"
}
