package engine

import (
	"fmt"
	"math"
	"math/rand"
)

// Eliminator discards the weakest non-exempt fraction of the pool each
// generation and refills the freed slots by varying survivors.
type Eliminator struct {
	Fraction float64
}

// Plan returns the slot indices to remove this generation: the bottom
// round(e*N) non-exempt candidates by score, ascending, ties broken by lower
// slot index. The count is clamped when the exempt set leaves fewer
// eliminable candidates than the quota.
func (e Eliminator) Plan(pool *Pool, exempt map[int]struct{}) []int {
	quota := int(math.Round(e.Fraction * float64(pool.Size())))
	if quota <= 0 {
		return nil
	}

	removable := make([]int, 0, pool.Size())
	for _, idx := range pool.RankedAscending() {
		if _, ok := exempt[idx]; ok {
			continue
		}
		removable = append(removable, idx)
	}
	if quota > len(removable) {
		quota = len(removable)
	}
	return removable[:quota]
}

// Apply removes the planned candidates and refills their slots with fresh
// variations of surviving candidates, exempt ones included. Pool size is
// unchanged.
func (e Eliminator) Apply(pool *Pool, removed []int, vary VaryFunc, rng *rand.Rand) error {
	if len(removed) == 0 {
		return nil
	}
	removedSet := make(map[int]struct{}, len(removed))
	for _, idx := range removed {
		removedSet[idx] = struct{}{}
	}
	survivors := make([]int, 0, pool.Size()-len(removed))
	for i := 0; i < pool.Size(); i++ {
		if _, gone := removedSet[i]; !gone {
			survivors = append(survivors, i)
		}
	}
	if len(survivors) == 0 {
		return fmt.Errorf("elimination would empty the pool")
	}

	for _, slot := range removed {
		parent := pool.At(survivors[rng.Intn(len(survivors))])
		child, err := vary(parent.Solution, rng)
		if err != nil {
			return fmt.Errorf("vary replacement for slot %d: %w", slot, err)
		}
		pool.Replace(slot, child)
	}
	return nil
}
