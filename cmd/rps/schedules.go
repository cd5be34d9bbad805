package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rpscheduler/internal/app"
	"rpscheduler/internal/domain"
	"rpscheduler/internal/engine"
	"rpscheduler/internal/pairing"
)

func scheduleCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "schedule",
		Short: "Weekly schedules",
		Long:  "A schedule covers the week containing the given date and is keyed by that week's Monday. Dates default to today.",
	}
	sc.AddCommand(scheduleGetCmd())
	sc.AddCommand(scheduleGenerateCmd())
	sc.AddCommand(scheduleSetCmd())
	sc.AddCommand(scheduleListCmd())
	return sc
}

func scheduleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [date]",
		Short: "Show the schedule for a week, generating it if none is stored",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, generated, err := a.Engine.GetSchedule(ctx, date, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"schedule": s, "generated": generated})
				}
				if err := printSchedule(ctx, a, s); err != nil {
					return err
				}
				if generated {
					fmt.Println("(generated now)")
				}
				return nil
			})
		},
	}
}

func scheduleGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [date]",
		Short: "Generate the schedule for a week, replacing any stored one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				g, err := a.Engine.GenerateSchedule(ctx, date, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(g)
				}
				if err := printSchedule(ctx, a, g.Schedule); err != nil {
					return err
				}
				summary := fmt.Sprintf("eligible edges: %d", g.Result.EligibleEdges)
				if g.Result.Bye != nil {
					summary += fmt.Sprintf(", bye: %d", *g.Result.Bye)
				}
				fmt.Println(summary)
				return nil
			})
		},
	}
}

func scheduleSetCmd() *cobra.Command {
	var pairs []string
	var unpaired []int64
	cmd := &cobra.Command{
		Use:     "set <date>",
		Short:   "Store a manual schedule for a week",
		Example: `  rps schedule set 2024-03-04 --pair 1:2 --pair 3:4 --unpaired 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
			}
			opts := engine.SetScheduleOptions{Date: date, Unpaired: unpaired, ActorID: actorID()}
			for _, p := range pairs {
				left, right, ok := strings.Cut(p, ":")
				if !ok {
					return fmt.Errorf("pair %q must be <id>:<id>", p)
				}
				a, b, err := parsePair([]string{left, right})
				if err != nil {
					return err
				}
				opts.Pairs = append(opts.Pairs, pairing.Pair{A: a, B: b})
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.SetSchedule(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				return printSchedule(ctx, a, s)
			})
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "pair", nil, "pair as <id>:<id>, repeatable")
	cmd.Flags().Int64SliceVar(&unpaired, "unpaired", nil, "unpaired agent ids")
	return cmd
}

func scheduleListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored schedules, newest week first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ListSchedules(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Week", "ID", "Created")
				for _, s := range items {
					tw.AppendRow(row(s.Date, s.ID, s.CreatedAt))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of schedules")
	return cmd
}

func printSchedule(ctx context.Context, a *app.App, s domain.Schedule) error {
	names, err := agentNames(ctx, a)
	if err != nil {
		return err
	}
	fmt.Printf("week of %s (%s)\n", s.Date, s.ID)
	tw := newTable("Agent 1", "Agent 2")
	for _, e := range s.Pairs() {
		tw.AppendRow(row(names.label(e.Agent1ID), names.label(*e.Agent2ID)))
	}
	for _, id := range s.Unpaired() {
		tw.AppendRow(row(names.label(id), "-"))
	}
	tw.Render()
	return nil
}
