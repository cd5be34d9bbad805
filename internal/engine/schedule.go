package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/events"
	"rpscheduler/internal/metrics"
	"rpscheduler/internal/pairing"
	"rpscheduler/internal/repo"
)

// Generation is a stored schedule plus the in-memory outcome that produced it.
type Generation struct {
	Schedule domain.Schedule `json:"schedule"`
	Result   pairing.Result  `json:"result"`
}

// SetScheduleOptions describes a manual schedule for the week of Date.
type SetScheduleOptions struct {
	Date     time.Time
	Pairs    []pairing.Pair
	Unpaired []int64
	ActorID  string
}

// GenerateSchedule pairs the active roster for the week containing date and
// replaces whatever schedule was stored for that week.
func (e Engine) GenerateSchedule(ctx context.Context, date time.Time, actorID string) (Generation, error) {
	week := pairing.WeekStart(date)
	unlock := e.lockDate(week.Format(pairing.DateLayout))
	defer unlock()
	return e.generateLocked(ctx, week, actorID)
}

// GetSchedule returns the schedule stored for the week containing date. When
// none exists it is generated first and generated is true.
func (e Engine) GetSchedule(ctx context.Context, date time.Time, actorID string) (s domain.Schedule, generated bool, err error) {
	week := pairing.WeekStart(date)
	key := week.Format(pairing.DateLayout)
	s, err = e.store().GetScheduleByDate(ctx, key)
	if err == nil || !errors.Is(err, repo.ErrNotFound) {
		return s, false, err
	}

	unlock := e.lockDate(key)
	defer unlock()
	// another caller may have generated it while we waited
	s, err = e.store().GetScheduleByDate(ctx, key)
	if err == nil || !errors.Is(err, repo.ErrNotFound) {
		return s, false, err
	}
	gen, err := e.generateLocked(ctx, week, actorID)
	if err != nil {
		return domain.Schedule{}, false, err
	}
	return gen.Schedule, true, nil
}

func (e Engine) ListSchedules(ctx context.Context, limit int) ([]domain.Schedule, error) {
	return e.Repo.ListSchedules(ctx, limit)
}

func (e Engine) generateLocked(ctx context.Context, week time.Time, actorID string) (Generation, error) {
	start := time.Now()
	key := week.Format(pairing.DateLayout)
	log := e.logger(ctx).With("date", key)

	gen, err := e.generate(ctx, week, actorID)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.GenerationFailed(elapsed)
		log.Error("schedule generation failed", "error", err)
		return Generation{}, err
	}
	metrics.ObserveGeneration(elapsed, len(gen.Result.Pairs), len(gen.Result.Unpaired), gen.Result.EligibleEdges)
	log.Info("schedule generated",
		"schedule_id", gen.Schedule.ID,
		"pairs", len(gen.Result.Pairs),
		"unpaired", len(gen.Result.Unpaired),
		"eligible_edges", gen.Result.EligibleEdges,
		"duration_ms", time.Since(start).Milliseconds())
	return gen, nil
}

func (e Engine) generate(ctx context.Context, week time.Time, actorID string) (Generation, error) {
	key := week.Format(pairing.DateLayout)
	in, err := e.loadInput(ctx, week)
	if err != nil {
		return Generation{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	res := pairing.Plan(in, e.rand())

	sched := domain.Schedule{
		ID:        uuid.NewString(),
		Date:      key,
		CreatedAt: e.timestamp(),
		Entries:   entriesFor(res.Pairs, res.Unpaired),
	}
	payload := events.EventPayload{
		"schedule_id":    sched.ID,
		"pairs":          res.Pairs,
		"unpaired":       res.Unpaired,
		"eligible_edges": res.EligibleEdges,
	}
	if res.Bye != nil {
		payload["bye"] = *res.Bye
	}
	if err := e.persist(ctx, sched, events.ScheduleGenerate, actorID, payload); err != nil {
		return Generation{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	stored, err := e.store().GetScheduleByDate(ctx, key)
	if err != nil {
		return Generation{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return Generation{Schedule: stored, Result: res}, nil
}

// loadInput reads everything one pairing run needs from the store.
func (e Engine) loadInput(ctx context.Context, week time.Time) (pairing.Input, error) {
	s := e.store()
	agents, err := s.ActiveAgents(ctx)
	if err != nil {
		return pairing.Input{}, fmt.Errorf("load agents: %w", err)
	}
	av := pairing.NewAvailability()
	ids := make([]int64, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
		weekly, err := s.RecurringAvailability(ctx, a.ID)
		if err != nil {
			return pairing.Input{}, fmt.Errorf("load availability for agent %d: %w", a.ID, err)
		}
		for _, w := range weekly {
			av.SetWeekly(a.ID, w.Weekday, w.Available)
		}
		dates, err := s.DateAvailability(ctx, a.ID)
		if err != nil {
			return pairing.Input{}, fmt.Errorf("load date availability for agent %d: %w", a.ID, err)
		}
		for _, d := range dates {
			t, err := pairing.ParseDate(d.Date)
			if err != nil {
				return pairing.Input{}, fmt.Errorf("agent %d has malformed date %q: %w", a.ID, d.Date, err)
			}
			av.SetDate(a.ID, t, d.Available)
		}
	}

	entries, err := s.BlacklistPairs(ctx)
	if err != nil {
		return pairing.Input{}, fmt.Errorf("load blacklist: %w", err)
	}
	blacklist := make([]pairing.Pair, 0, len(entries))
	for _, b := range entries {
		blacklist = append(blacklist, pairing.NewPair(b.AgentA, b.AgentB))
	}

	months := e.cooldownMonths()
	key := week.Format(pairing.DateLayout)
	from := week.AddDate(0, -months, 0).Format(pairing.DateLayout)
	to := week.AddDate(0, months, 0).Format(pairing.DateLayout)
	records, err := s.PairingHistory(ctx, from, to, key)
	if err != nil {
		return pairing.Input{}, fmt.Errorf("load pairing history: %w", err)
	}
	history := make([]pairing.Pair, 0, len(records))
	for _, r := range records {
		history = append(history, pairing.NewPair(r.AgentA, r.AgentB))
	}

	return pairing.Input{
		Week:      week,
		Agents:    ids,
		Resolver:  av,
		Blacklist: blacklist,
		History:   history,
	}, nil
}

// persist replaces the schedule and appends evtType in one transaction.
func (e Engine) persist(ctx context.Context, sched domain.Schedule, evtType, actorID string, payload events.EventPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.store().ReplaceSchedule(ctx, tx, sched); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, evtType, "schedule", sched.Date, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// SetSchedule stores a hand-edited schedule for the week of opts.Date. Every
// agent must exist and appear once, and no pair may be blacklisted. Cooldown
// is not checked.
func (e Engine) SetSchedule(ctx context.Context, opts SetScheduleOptions) (domain.Schedule, error) {
	week := pairing.WeekStart(opts.Date)
	key := week.Format(pairing.DateLayout)

	pairs := make([]pairing.Pair, 0, len(opts.Pairs))
	seen := map[int64]bool{}
	var ids []int64
	mark := func(id int64) error {
		if id <= 0 {
			return invalidf("agent id %d is not valid", id)
		}
		if seen[id] {
			return invalidf("agent %d appears more than once", id)
		}
		seen[id] = true
		ids = append(ids, id)
		return nil
	}
	for _, p := range opts.Pairs {
		if p.A == p.B {
			return domain.Schedule{}, invalidf("agent %d cannot be paired with itself", p.A)
		}
		if err := mark(p.A); err != nil {
			return domain.Schedule{}, err
		}
		if err := mark(p.B); err != nil {
			return domain.Schedule{}, err
		}
		pairs = append(pairs, pairing.NewPair(p.A, p.B))
	}
	for _, id := range opts.Unpaired {
		if err := mark(id); err != nil {
			return domain.Schedule{}, err
		}
	}

	unlock := e.lockDate(key)
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Schedule{}, err
	}
	defer tx.Rollback()
	missing, err := e.Repo.MissingAgentsTx(ctx, tx, ids)
	if err != nil {
		return domain.Schedule{}, err
	}
	if len(missing) > 0 {
		return domain.Schedule{}, UnknownAgentsError{IDs: missing}
	}
	for _, p := range pairs {
		blocked, err := e.Repo.IsBlacklistedTx(ctx, tx, p.A, p.B)
		if err != nil {
			return domain.Schedule{}, err
		}
		if blocked {
			return domain.Schedule{}, BlacklistedPairError{AgentA: p.A, AgentB: p.B}
		}
	}
	sched := domain.Schedule{
		ID:        uuid.NewString(),
		Date:      key,
		CreatedAt: e.timestamp(),
		Entries:   entriesFor(pairs, opts.Unpaired),
	}
	if err := e.store().ReplaceSchedule(ctx, tx, sched); err != nil {
		return domain.Schedule{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ScheduleSet, "schedule", key, opts.ActorID, events.EventPayload{
		"schedule_id": sched.ID,
		"pairs":       pairs,
		"unpaired":    opts.Unpaired,
	}); err != nil {
		return domain.Schedule{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Schedule{}, err
	}
	metrics.ManualSetsTotal.Inc()
	e.logger(ctx).Info("schedule set manually", "date", key, "pairs", len(pairs), "unpaired", len(opts.Unpaired))
	return e.Repo.GetScheduleByDate(ctx, key)
}

func entriesFor(pairs []pairing.Pair, unpaired []int64) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, 0, len(pairs)+len(unpaired))
	for _, p := range pairs {
		b := p.B
		entries = append(entries, domain.ScheduleEntry{Agent1ID: p.A, Agent2ID: &b})
	}
	for _, id := range unpaired {
		entries = append(entries, domain.ScheduleEntry{Agent1ID: id})
	}
	return entries
}
