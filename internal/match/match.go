// Package match scores approximate string similarity for the fuzzy
// resolution tier. Scores are integers on a 0-100 scale.
package match

import "github.com/agext/levenshtein"

var simParams = levenshtein.NewParams()

// PartialRatio returns the best similarity between the shorter of a and b
// and any equal-length window of the longer, scaled to 0-100. Equal strings
// score 100; an exact substring also scores 100.
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}

	best := 0.0
	s := string(shorter)
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		sim := levenshtein.Similarity(s, window, simParams)
		if sim > best {
			best = sim
		}
		if best == 1.0 {
			break
		}
	}
	return int(best * 100)
}

// Best finds the candidate most similar to query under PartialRatio.
// Ties keep the earliest candidate, so results are deterministic for a
// fixed candidate order. Returns ("", 0, -1) when candidates is empty.
func Best(query string, candidates []string) (string, int, int) {
	bestIdx := -1
	bestScore := 0
	for i, c := range candidates {
		score := PartialRatio(query, c)
		if bestIdx == -1 || score > bestScore {
			bestIdx = i
			bestScore = score
		}
		if bestScore == 100 {
			break
		}
	}
	if bestIdx == -1 {
		return "", 0, -1
	}
	return candidates[bestIdx], bestScore, bestIdx
}
