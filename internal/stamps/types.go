package stamps

// Stock is one denomination row of the inventory: Count pieces worth
// Denomination each.
type Stock struct {
	Denomination int
	Count        int
}

// Combination describes one reachable amount and the pieces used to form it.
// Composition maps denomination to the number of pieces used and never holds
// zero or negative counts.
type Combination struct {
	Amount      int
	Deviation   int
	Pieces      int
	Composition map[int]int
}

// Result groups the exact match, if any, with the closest amounts below and
// above the target. Under and Over hold at most maxCandidates entries each.
type Result struct {
	Exact *Combination
	Under []Combination
	Over  []Combination
}

// Found reports whether the solver produced any combination at all.
func (r Result) Found() bool {
	return r.Exact != nil || len(r.Under) > 0 || len(r.Over) > 0
}

// Solver describes the behaviour required from a stamp combination solver.
type Solver interface {
	Solve(stock []Stock, target int) Result
}
