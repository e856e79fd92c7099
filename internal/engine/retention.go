package engine

import "sort"

// RetentionFilter exempts paradoxical candidates from elimination: those that
// are simultaneously high-coherence and high-anomaly. The exemption holds
// regardless of rank, so unusual-but-plausible candidates survive at least
// one more generation.
type RetentionFilter struct {
	CoherenceThreshold float64
	ParadoxThreshold   float64
	// Cap bounds the exempt set per generation; 0 means unconditional
	// retention, which is the narrative behavior.
	Cap       int
	Normalize func(anomaly float64) float64
}

// Exempt returns the set of pool indices shielded from elimination this
// generation. When Cap is exceeded the highest normalized paradox scores win,
// ties broken by lower slot index.
func (f RetentionFilter) Exempt(pool *Pool) map[int]struct{} {
	type qualifier struct {
		idx     int
		paradox float64
	}
	qualifiers := make([]qualifier, 0, pool.Size())
	for i := 0; i < pool.Size(); i++ {
		c := pool.At(i)
		if !c.Evaluated || c.Degraded {
			continue
		}
		norm := c.Fitness.Anomaly
		if f.Normalize != nil {
			norm = f.Normalize(norm)
		}
		if c.Fitness.Coherence >= f.CoherenceThreshold && norm >= f.ParadoxThreshold {
			qualifiers = append(qualifiers, qualifier{idx: i, paradox: c.Fitness.Coherence * norm})
		}
	}

	if f.Cap > 0 && len(qualifiers) > f.Cap {
		sort.SliceStable(qualifiers, func(a, b int) bool {
			if qualifiers[a].paradox == qualifiers[b].paradox {
				return qualifiers[a].idx < qualifiers[b].idx
			}
			return qualifiers[a].paradox > qualifiers[b].paradox
		})
		qualifiers = qualifiers[:f.Cap]
	}

	exempt := make(map[int]struct{}, len(qualifiers))
	for _, q := range qualifiers {
		exempt[q.idx] = struct{}{}
	}
	return exempt
}
