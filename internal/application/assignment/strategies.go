package assignment

import (
	"sort"

	"github.com/civicgrid/licensing-portal/internal/domain/entity"
)

// sortByID orders candidates by the stable key every strategy ties-breaks on
func sortByID(candidates []*entity.Officer) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
}

// selectByStrategy picks one officer from a non-empty, id-sorted candidate
// list. It returns the chosen officer and the next round-robin cursor value
// (unchanged for strategies that do not use the cursor).
func selectByStrategy(
	strategy string,
	candidates []*entity.Officer,
	workloads map[int64]int,
	cursor int,
) (*entity.Officer, int) {
	switch strategy {
	case entity.StrategyRoundRobin:
		// The cursor is clamped by modulo so a shrunken pool never errors,
		// and the persisted successor wraps so it stays within the pool
		idx := cursor % len(candidates)
		return candidates[idx], (idx + 1) % len(candidates)

	case entity.StrategyPriorityBased:
		best := candidates[0]
		for _, o := range candidates[1:] {
			if o.PriorityRank < best.PriorityRank {
				best = o
			}
		}
		return best, cursor

	case entity.StrategySkillBased:
		best := candidates[0]
		for _, o := range candidates[1:] {
			if o.SkillScore > best.SkillScore {
				best = o
			}
		}
		return best, cursor

	default:
		// WORKLOAD_BASED is also the fallback for unknown strategies: fewest
		// active ledger rows, tie broken by lowest officer id (the list is
		// already id-sorted, so the first minimum wins).
		best := candidates[0]
		for _, o := range candidates[1:] {
			if workloads[o.ID] < workloads[best.ID] {
				best = o
			}
		}
		return best, cursor
	}
}
