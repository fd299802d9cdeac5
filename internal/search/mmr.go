package search

import (
	"math"

	"github.com/hyperjump/voxkb/internal/vector"
)

// Candidate is a store position with its relevance to the query.
type Candidate struct {
	Position int
	Score    float64
}

// FilterByThreshold keeps candidates scoring at least threshold. When none
// do, it falls back to the first topK candidates unfiltered. Input order is
// preserved.
func FilterByThreshold(candidates []Candidate, threshold float64, topK int) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			kept = append(kept, c)
		}
	}
	if len(kept) > 0 {
		return kept
	}
	n := min(topK, len(candidates))
	return append(kept, candidates[:n]...)
}

// VectorSource returns the stored vector at a position.
type VectorSource func(position int) ([]float32, error)

// SelectMMR picks up to k candidates by maximal marginal relevance:
//
//	mmr(c) = lambda*rel(c) - (1-lambda)*max_{s in selected} cos(c, s)
//
// The first pick is the most relevant candidate. Ties go to the candidate
// that appears first.
func SelectMMR(candidates []Candidate, k int, lambda float64, vectorOf VectorSource) ([]Candidate, error) {
	remaining := append([]Candidate(nil), candidates...)
	selected := make([]Candidate, 0, min(k, len(candidates)))
	var selectedVecs [][]float32

	vecs := make(map[int][]float32, len(candidates))
	lookup := func(pos int) ([]float32, error) {
		if v, ok := vecs[pos]; ok {
			return v, nil
		}
		v, err := vectorOf(pos)
		if err != nil {
			return nil, err
		}
		vecs[pos] = v
		return v, nil
	}

	for len(remaining) > 0 && len(selected) < k {
		best := 0
		if len(selected) == 0 {
			for i, c := range remaining {
				if c.Score > remaining[best].Score {
					best = i
				}
			}
		} else {
			bestScore := math.Inf(-1)
			for i, c := range remaining {
				v, err := lookup(c.Position)
				if err != nil {
					return nil, err
				}
				simToSelected := math.Inf(-1)
				for _, s := range selectedVecs {
					simToSelected = max(simToSelected, vector.CosineSimilarity(v, s))
				}
				score := lambda*c.Score - (1-lambda)*simToSelected
				if score > bestScore {
					bestScore = score
					best = i
				}
			}
		}

		pick := remaining[best]
		v, err := lookup(pick.Position)
		if err != nil {
			return nil, err
		}
		selected = append(selected, pick)
		selectedVecs = append(selectedVecs, v)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected, nil
}
