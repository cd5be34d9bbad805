package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/engine"
	"rpscheduler/internal/repo"
)

type agentPath struct {
	ID int64 `path:"id"`
}

func registerAgents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/agents",
		Summary:     "List agents",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Search string `query:"search" doc:"Matches first name, last name or email"`
		Active string `query:"active" doc:"Filter by active flag (true or false)"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []AgentResponse `json:"body"`
	}, error) {
		active, perr := parseOptionalBool("active", input.Active)
		if perr != nil {
			return nil, perr
		}
		items, err := e.ListAgents(ctx, repo.AgentFilters{Search: input.Search, Active: active, Limit: input.Limit})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AgentResponse `json:"body"`
		}{Body: mapAgents(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-agent",
		Method:        http.MethodPost,
		Path:          "/agents",
		Summary:       "Create agent",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateAgentRequest
	}) (*struct {
		Body AgentResponse `json:"body"`
	}, error) {
		a, err := e.CreateAgent(ctx, engine.AgentCreateOptions{
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			Email:       input.Body.Email,
			PhoneNumber: input.Body.PhoneNumber,
			Active:      input.Body.Active,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgentResponse `json:"body"`
		}{Body: agentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-agent",
		Method:      http.MethodGet,
		Path:        "/agents/{id}",
		Summary:     "Get agent",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *agentPath) (*struct {
		Body AgentResponse `json:"body"`
	}, error) {
		a, err := e.GetAgent(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgentResponse `json:"body"`
		}{Body: agentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-agent",
		Method:      http.MethodPatch,
		Path:        "/agents/{id}",
		Summary:     "Update agent",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id"`
		Body UpdateAgentRequest
	}) (*struct {
		Body AgentResponse `json:"body"`
	}, error) {
		a, err := e.UpdateAgent(ctx, engine.AgentUpdateOptions{
			ID:          input.ID,
			FirstName:   input.Body.FirstName,
			LastName:    input.Body.LastName,
			Email:       input.Body.Email,
			PhoneNumber: input.Body.PhoneNumber,
			Active:      input.Body.Active,
			ActorID:     actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgentResponse `json:"body"`
		}{Body: agentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-agent",
		Method:        http.MethodDelete,
		Path:          "/agents/{id}",
		Summary:       "Delete agent and everything that references it",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *agentPath) (*struct{}, error) {
		if err := e.DeleteAgent(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAvailability(api huma.API, e engine.Engine) {
	type availabilityOut = struct {
		Body AvailabilityResponse `json:"body"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-availability",
		Method:      http.MethodGet,
		Path:        "/agents/{id}/availability",
		Summary:     "Weekly pattern and date overrides of an agent",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *agentPath) (*availabilityOut, error) {
		av, err := e.GetAvailability(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &availabilityOut{Body: availabilityResponse(av)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-availability",
		Method:      http.MethodPut,
		Path:        "/agents/{id}/availability",
		Summary:     "Replace all availability of an agent",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id"`
		Body ReplaceAvailabilityRequest
	}) (*availabilityOut, error) {
		opts := engine.AvailabilityReplaceOptions{AgentID: input.ID, ActorID: actorID(ctx)}
		for _, w := range input.Body.Weekly {
			opts.Weekly = append(opts.Weekly, domain.RecurringAvailability{Weekday: w.Weekday, Available: w.Available})
		}
		for _, d := range input.Body.Dates {
			opts.Dates = append(opts.Dates, domain.DateAvailability{Date: d.Date, Available: d.Available})
		}
		av, err := e.ReplaceAvailability(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &availabilityOut{Body: availabilityResponse(av)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-weekday-availability",
		Method:      http.MethodPut,
		Path:        "/agents/{id}/availability/weekly/{weekday}",
		Summary:     "Set the weekly flag for one weekday (0 is Monday)",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      int64 `path:"id"`
		Weekday int   `path:"weekday"`
		Body    SetAvailabilityRequest
	}) (*availabilityOut, error) {
		if err := e.SetWeekday(ctx, input.ID, input.Weekday, input.Body.Available, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		av, err := e.GetAvailability(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &availabilityOut{Body: availabilityResponse(av)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "clear-weekday-availability",
		Method:        http.MethodDelete,
		Path:          "/agents/{id}/availability/weekly/{weekday}",
		Summary:       "Forget the weekly flag for one weekday",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      int64 `path:"id"`
		Weekday int   `path:"weekday"`
	}) (*struct{}, error) {
		if err := e.ClearWeekday(ctx, input.ID, input.Weekday, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-date-availability",
		Method:      http.MethodPut,
		Path:        "/agents/{id}/availability/dates/{date}",
		Summary:     "Override availability for one date",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64  `path:"id"`
		Date string `path:"date"`
		Body SetAvailabilityRequest
	}) (*availabilityOut, error) {
		if err := e.SetDate(ctx, input.ID, input.Date, input.Body.Available, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		av, err := e.GetAvailability(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &availabilityOut{Body: availabilityResponse(av)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "clear-date-availability",
		Method:        http.MethodDelete,
		Path:          "/agents/{id}/availability/dates/{date}",
		Summary:       "Remove the override for one date",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64  `path:"id"`
		Date string `path:"date"`
	}) (*struct{}, error) {
		if err := e.ClearDate(ctx, input.ID, input.Date, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerBlacklist(api huma.API, e engine.Engine) {
	type listOut = struct {
		Body []BlacklistResponse `json:"body"`
	}
	toList := func(items []domain.BlacklistEntry) *listOut {
		out := &listOut{Body: make([]BlacklistResponse, 0, len(items))}
		for _, b := range items {
			out.Body = append(out.Body, blacklistResponse(b, false))
		}
		return out
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-blacklist",
		Method:      http.MethodGet,
		Path:        "/blacklist",
		Summary:     "List blacklisted pairs",
	}, func(ctx context.Context, _ *struct{}) (*listOut, error) {
		items, err := e.ListBlacklist(ctx, 0)
		if err != nil {
			return nil, handleError(err)
		}
		return toList(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-agent-blacklist",
		Method:      http.MethodGet,
		Path:        "/agents/{id}/blacklist",
		Summary:     "List blacklisted pairs naming one agent",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *agentPath) (*listOut, error) {
		items, err := e.ListBlacklist(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return toList(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-blacklist",
		Method:      http.MethodPost,
		Path:        "/blacklist",
		Summary:     "Blacklist a pair (idempotent)",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body BlacklistRequest
	}) (*struct {
		Body BlacklistResponse `json:"body"`
	}, error) {
		entry, created, err := e.AddBlacklist(ctx, input.Body.AgentA, input.Body.AgentB, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BlacklistResponse `json:"body"`
		}{Body: blacklistResponse(entry, created)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-blacklist",
		Method:        http.MethodDelete,
		Path:          "/blacklist/{agent_a}/{agent_b}",
		Summary:       "Remove a blacklisted pair",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AgentA int64 `path:"agent_a"`
		AgentB int64 `path:"agent_b"`
	}) (*struct{}, error) {
		if err := e.RemoveBlacklist(ctx, input.AgentA, input.AgentB, actorID(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
