package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rpscheduler/internal/app"
	"rpscheduler/internal/logging"
	"rpscheduler/internal/notify"
	"rpscheduler/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath, logFormat string
	var pollInterval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and event notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(os.Stderr, logFormat, viper.GetString("log-level"))
			ctx := logging.ContextWithLogger(cmd.Context(), logger)
			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				secret := viper.GetString("jwt-secret")
				if secret == "" {
					logger.Warn("RPS_JWT_SECRET is not set; the API accepts unauthenticated requests")
				}
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: secret, Logger: logger},
					Logger:   logger,
				})
				if err != nil {
					return err
				}

				var wg sync.WaitGroup
				dispatcher, closers := notify.FromConfig(a.Config, a.Engine.Repo, logger)
				defer func() {
					for _, c := range closers {
						if err := c(); err != nil {
							logger.Warn("close notification sink", "error", err)
						}
					}
				}()
				if dispatcher.Len() > 0 {
					dispatcher.Interval = pollInterval
					wg.Add(1)
					go func() {
						defer wg.Done()
						dispatcher.Run(ctx)
					}()
				}

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving rps API",
					"addr", addr,
					"base_path", basePath,
					"openapi", basePath+"/openapi.json",
					"docs", "/docs",
					"metrics", "/metrics",
					"sinks", dispatcher.Len(),
					"cooldown_months", a.Config.Scheduling.CooldownMonths,
				)
				err = srv.ListenAndServe()
				cancel()
				wg.Wait()
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "log format (json or text)")
	cmd.Flags().DurationVar(&pollInterval, "notify-interval", notify.DefaultInterval, "event log poll interval for notifications")
	return cmd
}

func tokenCmd() *cobra.Command {
	tk := &cobra.Command{Use: "token", Short: "Bearer tokens for the HTTP API"}
	tk.AddCommand(tokenIssueCmd())
	return tk
}

func tokenIssueCmd() *cobra.Command {
	var subject string
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an HS256 token signed with RPS_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("RPS_JWT_SECRET (or --jwt-secret) is required")
			}
			if subject == "" {
				subject = actorID()
			}
			token, err := server.IssueToken(secret, subject, roles, ttl, time.Now())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "subject": subject, "expires_in": ttl.String()})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, recorded as actor (default --actor-id)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
