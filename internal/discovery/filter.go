package discovery

import (
	"time"

	"reportwatch/internal/search"
)

type matcher struct {
	names    map[string]struct{}
	patterns []string
}

func newMatcher(names, patterns []string) matcher {
	m := matcher{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		m.names[search.FoldName(n)] = struct{}{}
	}
	for _, p := range patterns {
		m.patterns = append(m.patterns, search.FoldName(p))
	}
	return m
}

func (m matcher) matches(name string) bool {
	folded := search.FoldName(name)
	if _, ok := m.names[folded]; ok {
		return true
	}
	return matchAny(m.patterns, folded)
}

// MatchGlob reports whether name matches pattern, ignoring case. '*' matches
// any run of characters and '?' a single character; every other rune,
// brackets and backslashes included, matches itself.
func MatchGlob(pattern, name string) bool {
	return wildcardMatch([]rune(search.FoldName(pattern)), []rune(search.FoldName(name)))
}

func matchAny(folded []string, name string) bool {
	n := []rune(name)
	for _, p := range folded {
		if wildcardMatch([]rune(p), n) {
			return true
		}
	}
	return false
}

// wildcardMatch backtracks only to the most recent '*', which is enough
// because a later star can absorb anything an earlier one could.
func wildcardMatch(pattern, name []rune) bool {
	pi, ni := 0, 0
	star, mark := -1, 0
	for ni < len(name) {
		switch {
		case pi < len(pattern) && pattern[pi] == '*':
			star, mark = pi, ni
			pi++
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == name[ni]):
			pi++
			ni++
		case star >= 0:
			mark++
			pi, ni = star+1, mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Filter applies, in order, the exclusion veto on file names, the inclusive
// maximum size, and the freshness bound that keeps files modified after
// now minus the configured age.
func Filter(files []File, cfg search.Configuration, now time.Time) []File {
	excludes := make([]string, 0, len(cfg.ExcludePatterns))
	for _, p := range cfg.ExcludePatterns {
		excludes = append(excludes, search.FoldName(p))
	}
	maxSize, hasMax := cfg.MaxFileSizeBytes.Get()
	age, hasAge := cfg.FileAge.Get()
	threshold := now.Add(-age)

	out := files[:0:0]
	for _, f := range files {
		if matchAny(excludes, search.FoldName(f.Name)) {
			continue
		}
		if hasMax && f.Size > maxSize {
			continue
		}
		if hasAge && !f.ModifiedAt.After(threshold) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// MatchesName reports whether a base name would be picked up by cfg: it must
// match a configured name or pattern and no exclusion.
func MatchesName(cfg search.Configuration, name string) bool {
	if !newMatcher(cfg.FileNames, cfg.FilePatterns).matches(name) {
		return false
	}
	for _, p := range cfg.ExcludePatterns {
		if MatchGlob(p, name) {
			return false
		}
	}
	return true
}
