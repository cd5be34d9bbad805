package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"rpscheduler/internal/engine"
	"rpscheduler/internal/pairing"
	"rpscheduler/internal/repo"
)

type scheduleOut = struct {
	Body ScheduleResponse `json:"body"`
}

type schedulePath struct {
	Date string `path:"date" doc:"Any date in the week, YYYY-MM-DD"`
}

func registerSchedules(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-schedules",
		Method:      http.MethodGet,
		Path:        "/schedules",
		Summary:     "List stored schedules, newest week first",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"20"`
	}) (*struct {
		Body []ScheduleResponse `json:"body"`
	}, error) {
		items, err := e.ListSchedules(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]ScheduleResponse, 0, len(items))
		for _, s := range items {
			out = append(out, scheduleResponse(s, false))
		}
		return &struct {
			Body []ScheduleResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-schedule",
		Method:      http.MethodGet,
		Path:        "/schedules/{date}",
		Summary:     "Get the schedule of a week, generating it on first request",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *schedulePath) (*scheduleOut, error) {
		date, perr := parseDateParam(input.Date)
		if perr != nil {
			return nil, perr
		}
		s, generated, err := e.GetSchedule(ctx, date, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &scheduleOut{Body: scheduleResponse(s, generated)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "generate-schedule",
		Method:      http.MethodPost,
		Path:        "/schedules/{date}/generate",
		Summary:     "Generate the schedule of a week, replacing any stored one",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *schedulePath) (*scheduleOut, error) {
		date, perr := parseDateParam(input.Date)
		if perr != nil {
			return nil, perr
		}
		gen, err := e.GenerateSchedule(ctx, date, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &scheduleOut{Body: generationResponse(gen)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-schedule",
		Method:      http.MethodPut,
		Path:        "/schedules/{date}",
		Summary:     "Store a hand-edited schedule for a week",
		Errors:      []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Date string `path:"date"`
		Body SetScheduleRequest
	}) (*scheduleOut, error) {
		date, perr := parseDateParam(input.Date)
		if perr != nil {
			return nil, perr
		}
		opts := engine.SetScheduleOptions{Date: date, Unpaired: input.Body.Unpaired, ActorID: actorID(ctx)}
		for _, p := range input.Body.Pairs {
			opts.Pairs = append(opts.Pairs, pairing.Pair{A: p.Agent1ID, B: p.Agent2ID})
		}
		s, err := e.SetSchedule(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &scheduleOut{Body: scheduleResponse(s, false)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"agent,blacklist,schedule"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     cursorID,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}
