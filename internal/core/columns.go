package core

// columns.go implements column location over heterogeneous source
// tables. Reference files for the same system arrive with different
// header spellings across releases, so each column of interest is
// described by a ColumnRule: exact candidates first, token-set
// fallbacks second. Rules are plain data and can be tested against
// header fixtures without reading any file.

import "strings"

// ColumnRule locates one column in a source table header.
type ColumnRule struct {
	// Exact is an ordered list of exact header candidates.
	// Compared case-insensitively after cell cleanup.
	Exact []string

	// Tokens holds fallback token sets, tried in order after all
	// exact candidates miss. A header containing every token in a
	// set (case-insensitive substring) matches.
	Tokens [][]string
}

// Resolve returns the 0-based position of the first matching header.
func (r ColumnRule) Resolve(headers []string) (int, bool) {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = strings.ToLower(CleanCell(h))
	}

	for _, want := range r.Exact {
		want = strings.ToLower(want)
		for i, h := range cleaned {
			if h == want {
				return i, true
			}
		}
	}

	for _, tokens := range r.Tokens {
		for i, h := range cleaned {
			if containsAllTokens(h, tokens) {
				return i, true
			}
		}
	}

	return 0, false
}

func containsAllTokens(header string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !strings.Contains(header, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// Long and short definition columns share their spelling variants
// across all three systems, so the rules live here rather than on the
// per-system profiles.
var (
	LongDefinitionRule = ColumnRule{
		Exact: []string{"Long_definition"},
		Tokens: [][]string{
			{"long", "def"},
			{"long", "definition"},
			{"long", "description"},
			{"definition"},
			{"description"},
		},
	}

	ShortDefinitionRule = ColumnRule{
		Exact:  []string{"Short_definition", "Short definition"},
		Tokens: [][]string{{"short", "def"}},
	}
)
