package engine

import (
	"context"
	"net/mail"
	"strconv"
	"strings"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/events"
	"rpscheduler/internal/repo"
)

type AgentCreateOptions struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	// Active defaults to true.
	Active  *bool
	ActorID string
}

// AgentUpdateOptions changes only the non-nil fields.
type AgentUpdateOptions struct {
	ID          int64
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	Active      *bool
	ActorID     string
}

func validateAgent(a domain.Agent) error {
	if a.FirstName == "" {
		return invalidf("first_name is required")
	}
	if a.LastName == "" {
		return invalidf("last_name is required")
	}
	if a.Email != "" {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			return invalidf("email %q is not a valid address", a.Email)
		}
	}
	return nil
}

func (e Engine) CreateAgent(ctx context.Context, opts AgentCreateOptions) (domain.Agent, error) {
	now := e.timestamp()
	a := domain.Agent{
		FirstName:   strings.TrimSpace(opts.FirstName),
		LastName:    strings.TrimSpace(opts.LastName),
		Email:       strings.TrimSpace(opts.Email),
		PhoneNumber: strings.TrimSpace(opts.PhoneNumber),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.Active != nil {
		a.Active = *opts.Active
	}
	if err := validateAgent(a); err != nil {
		return domain.Agent{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Agent{}, err
	}
	defer tx.Rollback()
	id, err := e.Repo.InsertAgentTx(ctx, tx, a)
	if err != nil {
		return domain.Agent{}, err
	}
	a.ID = id
	if err := e.Events.Append(ctx, tx, events.AgentCreate, "agent", strconv.FormatInt(id, 10), opts.ActorID, events.EventPayload{
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"active":     a.Active,
	}); err != nil {
		return domain.Agent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Agent{}, err
	}
	return a, nil
}

func (e Engine) UpdateAgent(ctx context.Context, opts AgentUpdateOptions) (domain.Agent, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Agent{}, err
	}
	defer tx.Rollback()
	a, err := e.Repo.GetAgentTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Agent{}, err
	}
	changed := events.EventPayload{}
	if opts.FirstName != nil {
		a.FirstName = strings.TrimSpace(*opts.FirstName)
		changed["first_name"] = a.FirstName
	}
	if opts.LastName != nil {
		a.LastName = strings.TrimSpace(*opts.LastName)
		changed["last_name"] = a.LastName
	}
	if opts.Email != nil {
		a.Email = strings.TrimSpace(*opts.Email)
		changed["email"] = a.Email
	}
	if opts.PhoneNumber != nil {
		a.PhoneNumber = strings.TrimSpace(*opts.PhoneNumber)
		changed["phone_number"] = a.PhoneNumber
	}
	if opts.Active != nil {
		a.Active = *opts.Active
		changed["active"] = a.Active
	}
	if len(changed) == 0 {
		return a, nil
	}
	if err := validateAgent(a); err != nil {
		return domain.Agent{}, err
	}
	a.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateAgentTx(ctx, tx, a); err != nil {
		return domain.Agent{}, err
	}
	if err := e.Events.Append(ctx, tx, events.AgentUpdate, "agent", strconv.FormatInt(a.ID, 10), opts.ActorID, changed); err != nil {
		return domain.Agent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Agent{}, err
	}
	return a, nil
}

// DeleteAgent removes the agent together with its availability, blacklist
// entries and schedule entries.
func (e Engine) DeleteAgent(ctx context.Context, id int64, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteAgentTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.AgentDelete, "agent", strconv.FormatInt(id, 10), actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetAgent(ctx context.Context, id int64) (domain.Agent, error) {
	return e.Repo.GetAgent(ctx, id)
}

func (e Engine) ListAgents(ctx context.Context, f repo.AgentFilters) ([]domain.Agent, error) {
	return e.Repo.ListAgents(ctx, f)
}
