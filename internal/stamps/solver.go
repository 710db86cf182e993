package stamps

import (
	"sort"
)

const maxCandidates = 3

type boundedSolver struct{}

// New creates a Solver based on binary decomposition and 0/1 dynamic programming.
// The returned value holds no state and is safe for concurrent use.
func New() Solver {
	return boundedSolver{}
}

// item is one power-of-two block of a single denomination's stock.
type item struct {
	value        int
	denomination int
	multiplier   int
}

// node is the traceback entry for one amount. prev and item are -1 for
// amount zero and for amounts never reached.
type node struct {
	reachable bool
	prev      int
	item      int
	pieces    int
}

type candidate struct {
	amount    int
	deviation int
	pieces    int
}

func (s boundedSolver) Solve(stock []Stock, target int) Result {
	if target <= 0 {
		return Result{}
	}

	items, maxDenom := decompose(stock)
	if len(items) == 0 {
		return Result{}
	}

	ceiling := target + maxDenom
	trace := reach(items, ceiling)

	var (
		exact *Combination
		under []candidate
		over  []candidate
	)
	for amount := 1; amount <= ceiling; amount++ {
		n := trace[amount]
		if !n.reachable {
			continue
		}
		switch {
		case amount == target:
			combo := build(trace, items, amount, target)
			exact = &combo
		case amount < target:
			under = append(under, candidate{amount: amount, deviation: target - amount, pieces: n.pieces})
		default:
			over = append(over, candidate{amount: amount, deviation: amount - target, pieces: n.pieces})
		}
	}

	return Result{
		Exact: exact,
		Under: shortlist(trace, items, under, target),
		Over:  shortlist(trace, items, over, target),
	}
}

// decompose splits every valid stock entry into blocks of 1, 2, 4, ... pieces,
// truncating the last block to what remains. Any count in [0, Count] is the
// sum of some subset of the blocks.
func decompose(stock []Stock) ([]item, int) {
	var (
		items    []item
		maxDenom int
	)
	for _, entry := range stock {
		if entry.Denomination <= 0 || entry.Count <= 0 {
			continue
		}
		if entry.Denomination > maxDenom {
			maxDenom = entry.Denomination
		}
		for remaining, block := entry.Count, 1; remaining > 0; block *= 2 {
			take := min(block, remaining)
			items = append(items, item{
				value:        entry.Denomination * take,
				denomination: entry.Denomination,
				multiplier:   take,
			})
			remaining -= take
		}
	}
	return items, maxDenom
}

// reach runs the 0/1 reachability pass over [0, ceiling]. The inner loop walks
// amounts downwards so each item is used at most once, and an amount keeps the
// first predecessor that reached it.
func reach(items []item, ceiling int) []node {
	trace := make([]node, ceiling+1)
	for i := range trace {
		trace[i].prev = -1
		trace[i].item = -1
	}
	trace[0].reachable = true

	for idx, it := range items {
		for amount := ceiling; amount >= it.value; amount-- {
			if trace[amount].reachable {
				continue
			}
			prev := amount - it.value
			if !trace[prev].reachable {
				continue
			}
			trace[amount] = node{
				reachable: true,
				prev:      prev,
				item:      idx,
				pieces:    trace[prev].pieces + it.multiplier,
			}
		}
	}
	return trace
}

// build reconstructs the composition for amount by walking its predecessor chain.
func build(trace []node, items []item, amount, target int) Combination {
	composition := make(map[int]int)
	pieces := 0
	for cur := amount; cur > 0 && trace[cur].item >= 0; cur = trace[cur].prev {
		it := items[trace[cur].item]
		composition[it.denomination] += it.multiplier
		pieces += it.multiplier
	}

	deviation := amount - target
	if deviation < 0 {
		deviation = -deviation
	}

	return Combination{
		Amount:      amount,
		Deviation:   deviation,
		Pieces:      pieces,
		Composition: composition,
	}
}

// shortlist orders candidates by deviation, then piece count, and builds
// combinations for the leading maxCandidates only.
func shortlist(trace []node, items []item, candidates []candidate, target int) []Combination {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].deviation != candidates[j].deviation {
			return candidates[i].deviation < candidates[j].deviation
		}
		return candidates[i].pieces < candidates[j].pieces
	})

	n := min(len(candidates), maxCandidates)
	out := make([]Combination, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, build(trace, items, c.amount, target))
	}
	return out
}
