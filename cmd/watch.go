package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/example/dine-alert/internal/config"
	"github.com/example/dine-alert/internal/dining"
	"github.com/example/dine-alert/internal/logging"
	"github.com/example/dine-alert/internal/notify"
	"github.com/example/dine-alert/internal/session"
	"github.com/example/dine-alert/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		file       string
		restaurant string
		date       string
		meal       string
		partySize  int
		target     string
	)

	c := &cobra.Command{
		Use:   "watch",
		Short: "Poll for availability and alert once per request when a table opens",
		RunE: func(cmd *cobra.Command, args []string) error {
			lg := logging.Setup()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sessions, err := sessionProvider(cfg)
			if err != nil {
				return err
			}
			client := dining.NewClient(sessions, dining.ClientOptions{
				BaseURL: cfg.APIBase,
				Timeout: cfg.CheckTimeout,
			})

			w := watch.New(client, notify.LogSink{Logger: lg}, watch.Config{
				PollInterval:     cfg.PollInterval,
				CheckTimeout:     cfg.CheckTimeout,
				FailureThreshold: cfg.FailureThreshold,
				SubmitJitter:     cfg.SubmitJitter,
				SiteRoot:         cfg.SiteRoot,
			}).WithLogger(lg)

			var specs []config.WatchSpec
			if file != "" {
				wf, err := config.LoadWatchFile(file)
				if err != nil {
					return err
				}
				specs = wf.Watches
			} else {
				specs = []config.WatchSpec{{
					Restaurant: restaurant,
					Date:       date,
					Meal:       meal,
					PartySize:  partySize,
					Notify:     target,
				}}
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Task", "Restaurant", "Date", "Meal", "Party", "Notify"})
			for _, s := range specs {
				q, err := s.Query()
				if err != nil {
					return err
				}
				t, err := w.Submit(q, s.Notify)
				if err != nil {
					return err
				}
				tw.AppendRow(table.Row{t.ID, q.EntityID, q.DateString(), string(q.Meal), q.PartySize, s.Notify})
			}
			tw.Render()

			// stop once every watch has resolved
			go func() {
				tick := time.NewTicker(time.Second)
				defer tick.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-tick.C:
						if w.Len() == 0 {
							cancel()
							return
						}
					}
				}
			}()

			if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	c.Flags().StringVar(&file, "file", "", "YAML watch file (submits every entry)")
	c.Flags().StringVar(&restaurant, "restaurant", "", "restaurant/location id")
	c.Flags().StringVar(&date, "date", "", "reservation date (YYYY-MM-DD)")
	c.Flags().StringVar(&meal, "meal", "", "meal period (breakfast|lunch|dinner)")
	c.Flags().IntVar(&partySize, "party-size", 2, "party size")
	c.Flags().StringVar(&target, "notify", "console", "opaque delivery target forwarded to the sink")

	return c
}

func buildQuery(restaurant, dateStr, meal string, partySize int) (dining.ReservationQuery, error) {
	date, err := dining.ParseDate(dateStr)
	if err != nil {
		return dining.ReservationQuery{}, err
	}
	mp, err := dining.ParseMealPeriod(meal)
	if err != nil {
		return dining.ReservationQuery{}, err
	}
	return dining.ReservationQuery{
		EntityID:  restaurant,
		Date:      date,
		Meal:      mp,
		PartySize: partySize,
	}, nil
}

func sessionProvider(cfg config.Config) (session.Provider, error) {
	if cfg.SessionToken != "" {
		return session.Static{Creds: session.Credentials{Token: cfg.SessionToken}}, nil
	}
	if cfg.LoginCmd == "" {
		return nil, fmt.Errorf("set SESSION_TOKEN or LOGIN_CMD")
	}
	return session.NewFileCache(
		cfg.SessionCachePath,
		cfg.SessionHashKey,
		cfg.SessionBlockKey,
		cfg.SessionTTL,
		session.CommandRefresh(cfg.LoginCmd),
	), nil
}
