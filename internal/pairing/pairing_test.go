package pairing_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpscheduler/internal/pairing"
)

// fixedRand always returns the same index so the bye agent is predictable.
type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func allAvailableMonday(ids ...int64) *pairing.Availability {
	av := pairing.NewAvailability()
	for _, id := range ids {
		av.SetWeekly(id, 0, true)
	}
	return av
}

func TestFourAgentsFullyPaired(t *testing.T) {
	res := pairing.Plan(pairing.Input{
		Week:     monday,
		Agents:   []int64{1, 2, 3, 4},
		Resolver: allAvailableMonday(1, 2, 3, 4),
	}, fixedRand(0))

	assert.Len(t, res.Pairs, 2)
	assert.Empty(t, res.Unpaired)
	assert.Nil(t, res.Bye)
	assert.Equal(t, 6, res.EligibleEdges)
}

func TestBlacklistedAgentLeftUnpaired(t *testing.T) {
	// Three agents is odd, so use a fourth agent with no availability to keep
	// the bye out of the picture and isolate the blacklist behavior.
	res := pairing.Plan(pairing.Input{
		Week:      monday,
		Agents:    []int64{1, 2, 3, 4},
		Resolver:  allAvailableMonday(1, 2, 3),
		Blacklist: []pairing.Pair{{A: 1, B: 2}, {A: 1, B: 3}},
	}, fixedRand(0))

	assert.Equal(t, []pairing.Pair{{A: 2, B: 3}}, res.Pairs)
	assert.Equal(t, []int64{1, 4}, res.Unpaired)
}

func TestThreeAgentsBlacklistWithBye(t *testing.T) {
	graph, bye := pairing.Build(pairing.Input{
		Week:      monday,
		Agents:    []int64{1, 2, 3},
		Resolver:  allAvailableMonday(1, 2, 3),
		Blacklist: []pairing.Pair{{A: 1, B: 2}, {A: 1, B: 3}},
	}, fixedRand(0))
	require.NotNil(t, bye)
	assert.Equal(t, int64(1), *bye)
	assert.True(t, graph.Eligible(2, 3))

	pairs, unmatched := pairing.Match(graph)
	assert.Equal(t, []pairing.Pair{{A: 2, B: 3}}, pairs)
	assert.Empty(t, unmatched)
}

func TestOddRosterRemovesExactlyOneBye(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}
	for idx := range ids {
		res := pairing.Plan(pairing.Input{
			Week:     monday,
			Agents:   ids,
			Resolver: allAvailableMonday(1, 2, 3, 4),
		}, fixedRand(idx))

		require.NotNil(t, res.Bye)
		assert.Equal(t, ids[idx], *res.Bye)
		assert.Equal(t, *res.Bye, res.Unpaired[len(res.Unpaired)-1], "bye is appended last")
		seen := map[int64]int{}
		for _, p := range res.Pairs {
			seen[p.A]++
			seen[p.B]++
			assert.NotEqual(t, *res.Bye, p.A)
			assert.NotEqual(t, *res.Bye, p.B)
		}
		for _, id := range res.Unpaired {
			seen[id]++
		}
		for _, id := range ids {
			assert.Equal(t, 1, seen[id], "agent %d appears exactly once", id)
		}
	}
}

func TestByeAppendedEvenWhenUnavailable(t *testing.T) {
	// Agent 5 has no availability at all but is still reported once as bye.
	res := pairing.Plan(pairing.Input{
		Week:     monday,
		Agents:   []int64{1, 2, 3, 4, 5},
		Resolver: allAvailableMonday(1, 2, 3, 4),
	}, fixedRand(4))

	require.NotNil(t, res.Bye)
	assert.Equal(t, int64(5), *res.Bye)
	assert.Len(t, res.Pairs, 2)
	assert.Equal(t, []int64{5}, res.Unpaired)
}

func TestCooldownHistoryEitherOrder(t *testing.T) {
	res := pairing.Plan(pairing.Input{
		Week:     monday,
		Agents:   []int64{1, 2, 3, 4},
		Resolver: allAvailableMonday(1, 2, 3, 4),
		History:  []pairing.Pair{{A: 2, B: 1}, {A: 4, B: 3}},
	}, fixedRand(0))

	for _, p := range res.Pairs {
		assert.NotEqual(t, pairing.NewPair(1, 2), p)
		assert.NotEqual(t, pairing.NewPair(3, 4), p)
	}
	assert.Len(t, res.Pairs, 2)
}

func TestNoSharedDayMeansNoEdge(t *testing.T) {
	av := pairing.NewAvailability()
	av.SetWeekly(1, 0, true)
	av.SetWeekly(2, 1, true)
	graph, _ := pairing.Build(pairing.Input{
		Week:     monday,
		Agents:   []int64{1, 2},
		Resolver: av,
	}, fixedRand(0))
	assert.False(t, graph.Eligible(1, 2))

	pairs, unmatched := pairing.Match(graph)
	assert.Empty(t, pairs)
	assert.Equal(t, []int64{1, 2}, unmatched)
}

func TestDateOverrideCreatesSharedDay(t *testing.T) {
	av := pairing.NewAvailability()
	av.SetWeekly(1, 2, true)
	av.SetWeekly(2, 2, false)
	av.SetDate(2, monday.AddDate(0, 0, 2), true)

	graph, _ := pairing.Build(pairing.Input{
		Week:     monday,
		Agents:   []int64{1, 2},
		Resolver: av,
	}, fixedRand(0))
	assert.True(t, graph.Eligible(1, 2))
}

func TestMostConstrainedAgentMatchedFirst(t *testing.T) {
	// 1 is connected to 2, 3 and 4; 4 is also connected to 5. Processing 1
	// first by id would take 2 and leave 4-5 intact, but taking 4 for 1 would
	// strand 5. Low degree agents go first so 5 keeps its only partner.
	av := pairing.NewAvailability()
	for _, id := range []int64{1, 2, 3, 4, 5, 6} {
		av.SetWeekly(id, 0, true)
	}
	blacklist := []pairing.Pair{
		{A: 2, B: 3}, {A: 2, B: 4}, {A: 2, B: 5}, {A: 2, B: 6},
		{A: 3, B: 4}, {A: 3, B: 5}, {A: 3, B: 6},
		{A: 1, B: 5}, {A: 1, B: 6},
		{A: 5, B: 6},
		{A: 4, B: 6},
	}
	// Remaining edges: 1-2, 1-3, 1-4, 4-5. Agent 6 is isolated.
	res := pairing.Plan(pairing.Input{
		Week:      monday,
		Agents:    []int64{1, 2, 3, 4, 5, 6},
		Resolver:  av,
		Blacklist: blacklist,
	}, fixedRand(0))

	assert.Equal(t, 4, res.EligibleEdges)
	assert.ElementsMatch(t, []pairing.Pair{{A: 1, B: 2}, {A: 4, B: 5}}, res.Pairs)
	assert.Equal(t, []int64{3, 6}, res.Unpaired)
}

func TestDeterministicAcrossRuns(t *testing.T) {
	av := pairing.NewAvailability()
	rnd := rand.New(rand.NewSource(7))
	var ids []int64
	for id := int64(1); id <= 30; id++ {
		ids = append(ids, id)
		for day := 0; day < pairing.DaysPerWeek; day++ {
			av.SetWeekly(id, day, rnd.Intn(3) == 0)
		}
	}
	var blacklist []pairing.Pair
	for i := 0; i < 40; i++ {
		a, b := int64(rnd.Intn(30)+1), int64(rnd.Intn(30)+1)
		if a != b {
			blacklist = append(blacklist, pairing.NewPair(a, b))
		}
	}
	in := pairing.Input{Week: monday, Agents: ids, Resolver: av, Blacklist: blacklist}

	first := pairing.Plan(in, fixedRand(3))
	for i := 0; i < 5; i++ {
		again := pairing.Plan(in, fixedRand(3))
		assert.Equal(t, first, again)
	}
	for _, p := range first.Pairs {
		for _, b := range blacklist {
			assert.NotEqual(t, b, p)
		}
	}
}

func TestEmptyRoster(t *testing.T) {
	res := pairing.Plan(pairing.Input{Week: monday, Resolver: pairing.NewAvailability()}, fixedRand(0))
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.Unpaired)
	assert.Nil(t, res.Bye)
}

func TestWeekStart(t *testing.T) {
	cases := map[string]string{
		"2024-03-04": "2024-03-04",
		"2024-03-06": "2024-03-04",
		"2024-03-10": "2024-03-04",
		"2024-03-11": "2024-03-11",
		"2024-01-01": "2024-01-01",
		"2023-12-31": "2023-12-25",
	}
	for in, want := range cases {
		d, err := pairing.ParseDate(in)
		require.NoError(t, err)
		assert.Equal(t, want, pairing.WeekStart(d).Format(pairing.DateLayout), in)
	}
}

func TestResolverPrecedence(t *testing.T) {
	av := pairing.NewAvailability()
	day := monday.AddDate(0, 0, 3)
	assert.False(t, av.IsAvailable(9, 3, day), "unknown is unavailable")

	av.SetWeekly(9, 3, true)
	assert.True(t, av.IsAvailable(9, 3, day))

	av.SetDate(9, day, false)
	assert.False(t, av.IsAvailable(9, 3, day), "date override wins")
	assert.True(t, av.IsAvailable(9, 3, day.AddDate(0, 0, 7)), "override is date specific")
}
