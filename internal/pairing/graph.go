package pairing

import (
	"sort"
	"time"
)

// DaysPerWeek is the number of day offsets checked from the week anchor.
const DaysPerWeek = 7

// Pair is an unordered agent pair kept in canonical order (A < B).
type Pair struct {
	A int64 `json:"agent1_id"`
	B int64 `json:"agent2_id"`
}

// NewPair returns the canonical form of (a, b).
func NewPair(a, b int64) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Rand is the random source used to choose the bye agent. *math/rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
}

// Input is everything the builder needs for one week.
type Input struct {
	Week      time.Time
	Agents    []int64
	Resolver  Resolver
	Blacklist []Pair
	History   []Pair
}

// Graph is the eligibility graph for one run. It is mutated by Match and must
// not be reused afterward.
type Graph struct {
	adj map[int64]map[int64]struct{}
}

func newGraph(agents []int64) *Graph {
	g := &Graph{adj: make(map[int64]map[int64]struct{}, len(agents))}
	for _, id := range agents {
		g.adj[id] = make(map[int64]struct{})
	}
	return g
}

func (g *Graph) addEdge(a, b int64) {
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}

// Agents returns the ids present in the graph in ascending order.
func (g *Graph) Agents() []int64 {
	ids := make([]int64, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Degree is the current number of eligible partners of id.
func (g *Graph) Degree(id int64) int {
	return len(g.adj[id])
}

// Partners returns the eligible partners of id in ascending order.
func (g *Graph) Partners(id int64) []int64 {
	ids := make([]int64, 0, len(g.adj[id]))
	for p := range g.adj[id] {
		ids = append(ids, p)
	}
	sortIDs(ids)
	return ids
}

// Eligible reports whether a and b may be paired.
func (g *Graph) Eligible(a, b int64) bool {
	_, ok := g.adj[a][b]
	return ok
}

// Edges counts the undirected edges.
func (g *Graph) Edges() int {
	n := 0
	for _, partners := range g.adj {
		n += len(partners)
	}
	return n / 2
}

// Build removes a random bye agent when the roster is odd and connects every
// remaining pair that is not blacklisted, not in the cooldown history and
// shares at least one available day of the week.
func Build(in Input, rnd Rand) (*Graph, *int64) {
	agents := append([]int64(nil), in.Agents...)
	sortIDs(agents)

	var bye *int64
	if len(agents)%2 == 1 {
		idx := rnd.Intn(len(agents))
		id := agents[idx]
		bye = &id
		agents = append(agents[:idx], agents[idx+1:]...)
	}

	blocked := make(map[Pair]struct{}, len(in.Blacklist)+len(in.History))
	for _, p := range in.Blacklist {
		blocked[NewPair(p.A, p.B)] = struct{}{}
	}
	for _, p := range in.History {
		blocked[NewPair(p.A, p.B)] = struct{}{}
	}

	days := weekDays(in.Week)
	g := newGraph(agents)
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			a, b := agents[i], agents[j]
			if _, ok := blocked[NewPair(a, b)]; ok {
				continue
			}
			if shareDay(in.Resolver, a, b, days) {
				g.addEdge(a, b)
			}
		}
	}
	return g, bye
}

func weekDays(week time.Time) []time.Time {
	days := make([]time.Time, DaysPerWeek)
	for off := range days {
		days[off] = week.AddDate(0, 0, off)
	}
	return days
}

func shareDay(r Resolver, a, b int64, days []time.Time) bool {
	for off, day := range days {
		if r.IsAvailable(a, off, day) && r.IsAvailable(b, off, day) {
			return true
		}
	}
	return false
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
