package utils

import (
	"context"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// FindClosestString returns the candidate with the smallest Levenshtein distance to s, ok is false if
// no candidate has a distance <= maxDifferences or if the context is done.
func FindClosestString(ctx context.Context, candidates []string, s string, maxDifferences int) (closest string, distance int, ok bool) {
	distance = -1
	sRunes := []rune(s)

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return "", -1, false
		default:
		}

		d := levenshtein.DistanceForStrings([]rune(candidate), sRunes, levenshtein.DefaultOptions)
		if d > maxDifferences {
			continue
		}
		if distance < 0 || d < distance {
			closest = candidate
			distance = d
			ok = true
		}
	}

	return
}
