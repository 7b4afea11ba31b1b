package path

import (
	"sort"

	"transit_router/pkg/pareto"
	"transit_router/pkg/raptor"
)

// Optimize reduces paths to a Pareto set under criteria, keeping exactly one
// canonical path per group of equal paths: the one with the lowest ranking
// key, then transfer-priority cost, then break-tie cost. The result is
// ordered by arrival, transfers and ranking key.
func Optimize[T raptor.TripSchedule](paths []*Path[T], criteria pareto.Criteria) []*Path[T] {
	sorted := make([]*Path[T], len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		return canonicalLess(sorted[i], sorted[j])
	})

	// Equal candidates are discarded, so the first of each group survives.
	set := pareto.NewSet(pareto.Comparator[*Path[T]](criteria))
	for _, p := range sorted {
		set.Add(p)
	}

	out := set.Elements()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Arrival != b.Arrival {
			return a.Arrival < b.Arrival
		}
		if a.Transfers != b.Transfers {
			return a.Transfers < b.Transfers
		}
		if a.RankKey() != b.RankKey() {
			return a.RankKey() < b.RankKey()
		}
		return canonicalLess(a, b)
	})
	return out
}

func canonicalLess[T raptor.TripSchedule](a, b *Path[T]) bool {
	if a.RankKey() != b.RankKey() {
		return a.RankKey() < b.RankKey()
	}
	if a.TransferPriorityCost != b.TransferPriorityCost {
		return a.TransferPriorityCost < b.TransferPriorityCost
	}
	if a.BreakTieCost != b.BreakTieCost {
		return a.BreakTieCost < b.BreakTieCost
	}
	if a.Departure != b.Departure {
		return a.Departure > b.Departure
	}
	return a.Signature() < b.Signature()
}
