package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"rpscheduler/internal/config"
	"rpscheduler/internal/domain"
	"rpscheduler/internal/events"
	"rpscheduler/internal/logging"
	"rpscheduler/internal/pairing"
	"rpscheduler/internal/repo"
)

// Store is the storage the schedule materializer reads from and writes to.
// repo.Repo implements it.
type Store interface {
	ActiveAgents(ctx context.Context) ([]domain.Agent, error)
	RecurringAvailability(ctx context.Context, agentID int64) ([]domain.RecurringAvailability, error)
	DateAvailability(ctx context.Context, agentID int64) ([]domain.DateAvailability, error)
	BlacklistPairs(ctx context.Context) ([]domain.BlacklistEntry, error)
	PairingHistory(ctx context.Context, from, to, excludeDate string) ([]domain.PairingRecord, error)
	GetScheduleByDate(ctx context.Context, date string) (domain.Schedule, error)
	ReplaceSchedule(ctx context.Context, tx *sql.Tx, s domain.Schedule) error
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Store  Store
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Rand   pairing.Rand
	Logger *slog.Logger

	locks *dateLocks
}

func New(db *sql.DB, cfg *config.Config) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Store:  r,
		Events: events.Writer{},
		Config: cfg,
		Now:    time.Now,
		Rand:   newLockedRand(time.Now().UnixNano()),
		locks:  newDateLocks(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) store() Store {
	if e.Store != nil {
		return e.Store
	}
	return e.Repo
}

func (e Engine) rand() pairing.Rand {
	if e.Rand != nil {
		return e.Rand
	}
	return newLockedRand(time.Now().UnixNano())
}

func (e Engine) logger(ctx context.Context) *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.FromContext(ctx)
}

func (e Engine) cooldownMonths() int {
	if e.Config == nil {
		return config.DefaultCooldownMonths
	}
	return e.Config.Scheduling.CooldownMonths
}

// lockDate serializes generation and manual edits for one schedule date.
func (e Engine) lockDate(date string) func() {
	if e.locks == nil {
		return func() {}
	}
	return e.locks.lock(date)
}

type dateLocks struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	mu   sync.Mutex
	refs int
}

func newDateLocks() *dateLocks {
	return &dateLocks{locks: make(map[string]*dateLock)}
}

func (d *dateLocks) lock(key string) func() {
	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &dateLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}

// lockedRand makes a *rand.Rand safe for concurrent generations.
type lockedRand struct {
	mu *sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed int64) lockedRand {
	return lockedRand{mu: &sync.Mutex{}, r: rand.New(rand.NewSource(seed))}
}

func (l lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}
