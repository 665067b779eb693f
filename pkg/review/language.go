package review

import (
	"path/filepath"
	"sort"
	"strings"
)

// language pairs a display name with review hints for that language.
type language struct {
	name string
	hint string
}

var languages = map[string]language{
	".py": {"python", `Python checks:
- Type hints on public functions
- Async/await correctness
- Context managers for resources
- Exception handling around I/O`},
	".js": {"javascript", `JavaScript checks:
- Null/undefined safety
- Async/await vs raw promises
- ES module import hygiene`},
	".ts": {"typescript", `TypeScript checks:
- Strict typing, no unchecked any
- Non-null assertions justified
- Type guards and narrowing`},
	".vue": {"vue", `Vue checks:
- Reactivity patterns (ref, reactive, computed)
- Props validation and emits declaration
- Lifecycle hook usage`},
	".jsx": {"react", `React checks:
- Hook rules (useEffect dependencies, ordering)
- Keys in rendered lists
- Unnecessary re-renders`},
	".tsx": {"react-ts", `React/TypeScript checks:
- Component prop typing
- Event and ref types
- Hook generic parameters`},
	".go": {"go", `Go checks:
- Error handling on every call that can fail
- Goroutine and channel lifecycle
- Defer placement and context propagation`},
	".rs": {"rust", `Rust checks:
- Ownership and borrowing correctness
- Error handling via Result/Option
- Unsafe blocks justified`},
	".java": {"java", `Java checks:
- Resource management (try-with-resources)
- Exception hierarchy usage
- Generics type safety`},
	".php": {"php", `PHP checks:
- Type declarations
- Prepared statements for SQL
- Namespace and PSR compliance`},
}

// LanguageHint returns the review hint text for a file path, or "".
func LanguageHint(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return languages[ext].hint
}

// LanguageNames returns the sorted, deduplicated language names for the
// given file paths. The joined result is the fingerprint's language
// component, so it must be deterministic.
func LanguageNames(paths []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range paths {
		l, ok := languages[strings.ToLower(filepath.Ext(p))]
		if !ok || seen[l.name] {
			continue
		}
		seen[l.name] = true
		names = append(names, l.name)
	}
	sort.Strings(names)
	return names
}
