package index

import "sort"

type mergedHit struct {
	id       string
	score    float64
	dual     bool
	lexScore *float64
	semScore *float64
}

// hybridMerge unions both signal lists by record identity. Dual-signal hits
// combine as alpha*lex + (1-alpha)*sem over normalized scores; a hit present
// in only one list keeps that list's normalized score scaled by its own
// weight, never boosted to parity with a dual-signal hit.
//
// Lexical scores are divided by the max observed score and semantic
// similarities map [-1,1] onto [0,1]; both keep the relative spread between
// items intact, which a floor clamp would not.
func hybridMerge(lexical, semantic []signalHit, alpha float64, limit int) []mergedHit {
	lexMap := make(map[string]float64, len(lexical))
	semMap := make(map[string]float64, len(semantic))

	var maxLex float64
	for _, h := range lexical {
		lexMap[h.id] = h.score
		if h.score > maxLex {
			maxLex = h.score
		}
	}
	for _, h := range semantic {
		semMap[h.id] = h.score
	}

	ids := make(map[string]struct{}, len(lexMap)+len(semMap))
	for id := range lexMap {
		ids[id] = struct{}{}
	}
	for id := range semMap {
		ids[id] = struct{}{}
	}

	merged := make([]mergedHit, 0, len(ids))
	for id := range ids {
		var hit mergedHit
		hit.id = id

		if raw, ok := lexMap[id]; ok {
			norm := 0.0
			if maxLex > 0 {
				norm = raw / maxLex
			}
			hit.score += alpha * norm
			v := norm
			hit.lexScore = &v
		}
		if raw, ok := semMap[id]; ok {
			norm := (raw + 1) / 2
			hit.score += (1 - alpha) * norm
			v := norm
			hit.semScore = &v
		}
		hit.dual = hit.lexScore != nil && hit.semScore != nil
		merged = append(merged, hit)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.score != b.score {
			return a.score > b.score
		}
		// Equal combined scores: dual-signal hits outrank single-source
		// hits, then identity keeps the order deterministic.
		if a.dual != b.dual {
			return a.dual
		}
		return a.id < b.id
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
