package scanner

import (
	"regexp"
	"sort"
)

// ImportKind tags the syntactic surface an import specifier was found in.
type ImportKind int

const (
	// KindStatic is `import ... from 'x'`, including type-only variants.
	KindStatic ImportKind = iota
	// KindSideEffect is `import 'x'`.
	KindSideEffect
	// KindDynamic is `import('x')`.
	KindDynamic
	// KindRequire is `require('x')`.
	KindRequire
)

// ImportOccurrence is one import specifier found in a source file.
type ImportOccurrence struct {
	Kind      ImportKind
	Specifier string
}

// The extraction below is a bounded lexical heuristic, not a parser. It can
// false-positive on import-shaped text inside comments or strings; that is a
// documented limitation of the scan, not something to tighten here.
var (
	staticImportRe = regexp.MustCompile(`import\s+(?:type\s+)?[\w$*{},\s]+?\s*from\s*['"]([^'"]+)['"]`)
	sideEffectRe   = regexp.MustCompile(`import\s*['"]([^'"]+)['"]`)
	dynamicRe      = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
	requireRe      = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

// ExtractImports finds every import specifier in source, in file order.
// Re-export statements (`export ... from`) are intentionally not detected;
// only import-shaped syntax is scanned.
func ExtractImports(source string) []ImportOccurrence {
	type positioned struct {
		pos int
		occ ImportOccurrence
	}

	var found []positioned
	collect := func(re *regexp.Regexp, kind ImportKind) {
		for _, m := range re.FindAllStringSubmatchIndex(source, -1) {
			found = append(found, positioned{
				pos: m[0],
				occ: ImportOccurrence{Kind: kind, Specifier: source[m[2]:m[3]]},
			})
		}
	}

	collect(staticImportRe, KindStatic)
	collect(sideEffectRe, KindSideEffect)
	collect(dynamicRe, KindDynamic)
	collect(requireRe, KindRequire)

	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	occurrences := make([]ImportOccurrence, 0, len(found))
	for _, f := range found {
		occurrences = append(occurrences, f.occ)
	}
	return occurrences
}
