package pairing

import "container/heap"

type queueItem struct {
	degree int
	agent  int64
}

// degreeQueue is a min-heap on (degree, agent).
type degreeQueue []queueItem

func (q degreeQueue) Len() int { return len(q) }
func (q degreeQueue) Less(i, j int) bool {
	if q[i].degree != q[j].degree {
		return q[i].degree < q[j].degree
	}
	return q[i].agent < q[j].agent
}
func (q degreeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *degreeQueue) Push(x any)   { *q = append(*q, x.(queueItem)) }
func (q *degreeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Match greedily pairs the most constrained agent first. Stale queue entries
// are skipped on pop instead of being updated in place. The partner chosen is
// always the smallest eligible id, so the result depends only on the graph.
//
// The returned unmatched ids are ascending. Match consumes g.
func Match(g *Graph) ([]Pair, []int64) {
	q := make(degreeQueue, 0, len(g.adj))
	for _, id := range g.Agents() {
		q = append(q, queueItem{degree: g.Degree(id), agent: id})
	}
	heap.Init(&q)

	matched := make(map[int64]bool, len(g.adj))
	done := make(map[int64]bool, len(g.adj))
	var pairs []Pair
	for q.Len() > 0 && len(done) < len(g.adj) {
		item := heap.Pop(&q).(queueItem)
		id := item.agent
		if done[id] || g.Degree(id) != item.degree {
			continue
		}
		if item.degree == 0 {
			done[id] = true
			continue
		}
		partner := g.Partners(id)[0]
		pairs = append(pairs, NewPair(id, partner))
		matched[id], matched[partner] = true, true
		done[id], done[partner] = true, true

		touched := make(map[int64]struct{})
		for _, gone := range []int64{id, partner} {
			for n := range g.adj[gone] {
				delete(g.adj[n], gone)
				if !done[n] {
					touched[n] = struct{}{}
				}
			}
			g.adj[gone] = map[int64]struct{}{}
		}
		for _, n := range sortedKeys(touched) {
			heap.Push(&q, queueItem{degree: g.Degree(n), agent: n})
		}
	}

	var unmatched []int64
	for _, id := range g.Agents() {
		if !matched[id] {
			unmatched = append(unmatched, id)
		}
	}
	return pairs, unmatched
}

func sortedKeys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}
