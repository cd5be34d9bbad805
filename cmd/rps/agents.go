package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rpscheduler/internal/app"
	"rpscheduler/internal/domain"
	"rpscheduler/internal/engine"
	"rpscheduler/internal/repo"
)

func agentCmd() *cobra.Command {
	ag := &cobra.Command{Use: "agent", Short: "Manage the roster"}
	ag.AddCommand(agentAddCmd())
	ag.AddCommand(agentListCmd())
	ag.AddCommand(agentGetCmd())
	ag.AddCommand(agentUpdateCmd())
	ag.AddCommand(agentRemoveCmd())
	return ag
}

func agentAddCmd() *cobra.Command {
	var opts engine.AgentCreateOptions
	var inactive bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inactive {
				active := false
				opts.Active = &active
			}
			opts.ActorID = actorID()
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				agent, err := a.Engine.CreateAgent(ctx, opts)
				if err != nil {
					return err
				}
				return printAgents([]domain.Agent{agent})
			})
		},
	}
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.PhoneNumber, "phone", "", "phone number")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the agent inactive")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}

func agentListCmd() *cobra.Command {
	var f repo.AgentFilters
	var active string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if active != "" {
				v, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("--active must be true or false")
				}
				f.Active = &v
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				agents, err := a.Engine.ListAgents(ctx, f)
				if err != nil {
					return err
				}
				return printAgents(agents)
			})
		},
	}
	cmd.Flags().StringVar(&f.Search, "search", "", "match first name, last name or email")
	cmd.Flags().StringVar(&active, "active", "", "filter by active flag (true/false)")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of agents")
	return cmd
}

func agentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an agent with availability and blacklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				agent, err := a.Engine.GetAgent(ctx, id)
				if err != nil {
					return err
				}
				av, err := a.Engine.GetAvailability(ctx, id)
				if err != nil {
					return err
				}
				bl, err := a.Engine.ListBlacklist(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"agent": agent, "availability": av, "blacklist": bl})
				}
				if err := printAgents([]domain.Agent{agent}); err != nil {
					return err
				}
				printAvailability(av)
				if len(bl) > 0 {
					var others []string
					for _, e := range bl {
						other := e.AgentA
						if other == id {
							other = e.AgentB
						}
						others = append(others, strconv.FormatInt(other, 10))
					}
					fmt.Println("never paired with:", strings.Join(others, ", "))
				}
				return nil
			})
		},
	}
}

func agentUpdateCmd() *cobra.Command {
	var first, last, email, phone string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := engine.AgentUpdateOptions{ID: id, ActorID: actorID()}
			if cmd.Flags().Changed("first-name") {
				opts.FirstName = &first
			}
			if cmd.Flags().Changed("last-name") {
				opts.LastName = &last
			}
			if cmd.Flags().Changed("email") {
				opts.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				opts.PhoneNumber = &phone
			}
			if cmd.Flags().Changed("active") {
				opts.Active = &active
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				agent, err := a.Engine.UpdateAgent(ctx, opts)
				if err != nil {
					return err
				}
				return printAgents([]domain.Agent{agent})
			})
		},
	}
	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address (empty clears)")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number (empty clears)")
	cmd.Flags().BoolVar(&active, "active", true, "active flag")
	return cmd
}

func agentRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an agent with its availability, blacklist entries and schedule entries",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.DeleteAgent(ctx, id, actorID()); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"deleted": id})
				}
				fmt.Println("deleted agent", id)
				return nil
			})
		},
	}
}

func availabilityCmd() *cobra.Command {
	av := &cobra.Command{
		Use:   "availability",
		Short: "Manage agent availability",
		Long:  "Weekdays are numbered 0 (Monday) to 6 (Sunday). A date override wins over the weekly pattern; no entry means unavailable.",
	}
	av.AddCommand(availabilityShowCmd())
	av.AddCommand(availabilitySetCmd())
	av.AddCommand(availabilityClearCmd())
	av.AddCommand(availabilityReplaceCmd())
	return av
}

func availabilityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show weekly pattern and date overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				av, err := a.Engine.GetAvailability(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(av)
				}
				printAvailability(av)
				return nil
			})
		},
	}
}

func availabilitySetCmd() *cobra.Command {
	var weekday int
	var date string
	var available bool
	cmd := &cobra.Command{
		Use:   "set <agent-id>",
		Short: "Set one weekday or one date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			hasDay, hasDate := cmd.Flags().Changed("weekday"), date != ""
			if hasDay == hasDate {
				return fmt.Errorf("exactly one of --weekday or --date is required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if hasDay {
					err = a.Engine.SetWeekday(ctx, id, weekday, available, actorID())
				} else {
					err = a.Engine.SetDate(ctx, id, date, available, actorID())
				}
				if err != nil {
					return err
				}
				return showAvailability(ctx, a, id)
			})
		},
	}
	cmd.Flags().IntVar(&weekday, "weekday", 0, "weekday, 0 is Monday")
	cmd.Flags().StringVar(&date, "date", "", "date override (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&available, "available", true, "availability value")
	return cmd
}

func availabilityClearCmd() *cobra.Command {
	var weekday int
	var date string
	cmd := &cobra.Command{
		Use:   "clear <agent-id>",
		Short: "Remove one weekday entry or one date override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			hasDay, hasDate := cmd.Flags().Changed("weekday"), date != ""
			if hasDay == hasDate {
				return fmt.Errorf("exactly one of --weekday or --date is required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if hasDay {
					err = a.Engine.ClearWeekday(ctx, id, weekday, actorID())
				} else {
					err = a.Engine.ClearDate(ctx, id, date, actorID())
				}
				if err != nil {
					return err
				}
				return showAvailability(ctx, a, id)
			})
		},
	}
	cmd.Flags().IntVar(&weekday, "weekday", 0, "weekday, 0 is Monday")
	cmd.Flags().StringVar(&date, "date", "", "date override (YYYY-MM-DD)")
	return cmd
}

func availabilityReplaceCmd() *cobra.Command {
	var weekly, dates []string
	cmd := &cobra.Command{
		Use:   "replace <agent-id>",
		Short: "Replace all availability of an agent",
		Example: `  rps availability replace 3 --weekly 0=true --weekly 2=true --date 2024-03-06=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := engine.AvailabilityReplaceOptions{AgentID: id, ActorID: actorID()}
			for _, kv := range weekly {
				key, val, err := splitAssignment(kv)
				if err != nil {
					return err
				}
				day, err := strconv.Atoi(key)
				if err != nil {
					return fmt.Errorf("invalid weekday %q", key)
				}
				opts.Weekly = append(opts.Weekly, domain.RecurringAvailability{AgentID: id, Weekday: day, Available: val})
			}
			for _, kv := range dates {
				key, val, err := splitAssignment(kv)
				if err != nil {
					return err
				}
				opts.Dates = append(opts.Dates, domain.DateAvailability{AgentID: id, Date: key, Available: val})
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				av, err := a.Engine.ReplaceAvailability(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(av)
				}
				printAvailability(av)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&weekly, "weekly", nil, "weekday=bool, repeatable")
	cmd.Flags().StringArrayVar(&dates, "date", nil, "YYYY-MM-DD=bool, repeatable")
	return cmd
}

func blacklistCmd() *cobra.Command {
	bl := &cobra.Command{Use: "blacklist", Short: "Manage pairs that must never be scheduled"}
	bl.AddCommand(blacklistAddCmd())
	bl.AddCommand(blacklistRemoveCmd())
	bl.AddCommand(blacklistListCmd())
	return bl
}

func blacklistAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <agent-id> <agent-id>",
		Short: "Blacklist a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b, err := parsePair(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, ap *app.App) error {
				entry, created, err := ap.Engine.AddBlacklist(ctx, a, b, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"entry": entry, "created": created})
				}
				if !created {
					fmt.Printf("pair %d-%d already blacklisted\n", entry.AgentA, entry.AgentB)
					return nil
				}
				fmt.Printf("blacklisted %d-%d\n", entry.AgentA, entry.AgentB)
				return nil
			})
		},
	}
}

func blacklistRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <agent-id> <agent-id>",
		Short: "Remove a blacklisted pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b, err := parsePair(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, ap *app.App) error {
				if err := ap.Engine.RemoveBlacklist(ctx, a, b, actorID()); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"removed": []int64{a, b}})
				}
				fmt.Printf("removed %d-%d\n", a, b)
				return nil
			})
		},
	}
}

func blacklistListCmd() *cobra.Command {
	var agent int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blacklisted pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				entries, err := a.Engine.ListBlacklist(ctx, agent)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				names, err := agentNames(ctx, a)
				if err != nil {
					return err
				}
				tw := newTable("Agent A", "Agent B", "Created")
				for _, e := range entries {
					tw.AppendRow(row(names.label(e.AgentA), names.label(e.AgentB), e.CreatedAt))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&agent, "agent", 0, "only pairs involving this agent")
	return cmd
}

// --- output helpers ---

var weekdayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func row(cells ...any) table.Row { return table.Row(cells) }

func printAgents(agents []domain.Agent) error {
	if viper.GetBool("json") {
		if len(agents) == 1 {
			return printJSON(agents[0])
		}
		return printJSON(agents)
	}
	tw := newTable("ID", "Name", "Email", "Phone", "Active")
	for _, a := range agents {
		tw.AppendRow(row(a.ID, a.FirstName+" "+a.LastName, a.Email, a.PhoneNumber, a.Active))
	}
	tw.Render()
	return nil
}

func printAvailability(av domain.AgentAvailability) {
	tw := newTable("Day", "Available")
	for _, w := range av.Weekly {
		tw.AppendRow(row(weekdayNames[w.Weekday], w.Available))
	}
	for _, d := range av.Dates {
		tw.AppendRow(row(d.Date, d.Available))
	}
	tw.Render()
}

func showAvailability(ctx context.Context, a *app.App, id int64) error {
	av, err := a.Engine.GetAvailability(ctx, id)
	if err != nil {
		return err
	}
	if viper.GetBool("json") {
		return printJSON(av)
	}
	printAvailability(av)
	return nil
}

type nameIndex map[int64]string

func (n nameIndex) label(id int64) string {
	if name, ok := n[id]; ok {
		return fmt.Sprintf("%s (%d)", name, id)
	}
	return strconv.FormatInt(id, 10)
}

func agentNames(ctx context.Context, a *app.App) (nameIndex, error) {
	agents, err := a.Engine.ListAgents(ctx, repo.AgentFilters{})
	if err != nil {
		return nil, err
	}
	names := make(nameIndex, len(agents))
	for _, ag := range agents {
		names[ag.ID] = ag.FirstName + " " + ag.LastName
	}
	return names, nil
}

func parsePair(args []string) (int64, int64, error) {
	a, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func splitAssignment(kv string) (string, bool, error) {
	key, val, ok := strings.Cut(kv, "=")
	if !ok {
		return "", false, fmt.Errorf("expected key=bool, got %q", kv)
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return "", false, fmt.Errorf("invalid value in %q: %w", kv, err)
	}
	return strings.TrimSpace(key), b, nil
}

func repoEventFilters(n int, evtType, entityKind, entityID string) repo.EventFilters {
	return repo.EventFilters{Type: evtType, EntityKind: entityKind, EntityID: entityID, Limit: n}
}
