// Package truncate bounds raw model completions to the code they most
// plausibly intended to write. Generative models keep sampling past the end
// of a function into prints, new definitions, or prose; truncation cuts the
// completion at the first signal that the local piece of code is finished.
package truncate

import "regexp"

// Options select the truncation heuristic.
type Options struct {
	// OnlyLocalScope cuts at the first line that leaves the local
	// (indented) scope instead of scanning for terminal markers.
	OnlyLocalScope bool

	// MaxDefs and MaxPrints bound how many top-level "def" and "print"
	// statements may appear before the completion is cut. Zero values
	// default to one of each.
	MaxDefs   int
	MaxPrints int
}

var (
	localScopeEnd = regexp.MustCompile(`\n\S`)
	topLevelDef   = regexp.MustCompile(`(?m)^def`)
	topLevelPrint = regexp.MustCompile(`(?m)^print`)

	terminals = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#`),
		regexp.MustCompile(regexp.QuoteMeta("<|endoftext|>")),
		regexp.MustCompile(`(?m)^'''`),
		regexp.MustCompile(`(?m)^"""`),
		regexp.MustCompile(`\n\n\n`),
	}
)

// Truncate cuts a completion at the boundary selected by opts and returns
// the retained prefix.
func Truncate(completion string, opts Options) string {
	if opts.OnlyLocalScope {
		if loc := localScopeEnd.FindStringIndex(completion); loc != nil {
			return completion[:loc[0]]
		}
		return completion
	}

	maxPrints := opts.MaxPrints
	if maxPrints == 0 {
		maxPrints = 1
	}
	maxDefs := opts.MaxDefs
	if maxDefs == 0 {
		maxDefs = 1
	}

	completion = cutAtOccurrence(completion, topLevelPrint, maxPrints)
	completion = cutAtOccurrence(completion, topLevelDef, maxDefs)

	cut := -1
	for _, term := range terminals {
		if loc := term.FindStringIndex(completion); loc != nil {
			if cut == -1 || loc[0] < cut {
				cut = loc[0]
			}
		}
	}
	if cut != -1 {
		return completion[:cut]
	}
	return completion
}

// cutAtOccurrence truncates text at the n-th match of re, counting from
// zero, leaving earlier matches intact.
func cutAtOccurrence(text string, re *regexp.Regexp, n int) string {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) > n {
		return text[:matches[n][0]]
	}
	return text
}
