// Package pairing builds weekly agent pairings.
//
// A run resolves availability for each agent and day of the target week,
// builds the eligibility graph (blacklist, cooldown history and shared
// availability), then greedily matches the most constrained agents first.
// The result is a near-maximum matching: it never violates a constraint but
// it is not guaranteed to be maximum on adversarial graphs.
package pairing

// Result is the outcome of one pairing run.
type Result struct {
	Pairs []Pair `json:"pairs"`
	// Unpaired lists agents without a partner, ascending, with the bye agent
	// (if any) appended last.
	Unpaired []int64 `json:"unpaired"`
	// Bye is the agent removed for odd roster parity. It is also in Unpaired.
	Bye *int64 `json:"bye,omitempty"`
	// EligibleEdges is the edge count of the graph before matching.
	EligibleEdges int `json:"eligible_edges"`
}

// Plan runs the builder and the matcher for one week.
func Plan(in Input, rnd Rand) Result {
	g, bye := Build(in, rnd)
	edges := g.Edges()
	pairs, unmatched := Match(g)
	if bye != nil {
		unmatched = append(unmatched, *bye)
	}
	if pairs == nil {
		pairs = []Pair{}
	}
	if unmatched == nil {
		unmatched = []int64{}
	}
	return Result{
		Pairs:         pairs,
		Unpaired:      unmatched,
		Bye:           bye,
		EligibleEdges: edges,
	}
}
