package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/example/dine-alert/internal/config"
	"github.com/example/dine-alert/internal/dining"
	"github.com/example/dine-alert/internal/logging"
)

func newCheckCmd() *cobra.Command {
	var (
		restaurant string
		date       string
		meal       string
		partySize  int
	)

	c := &cobra.Command{
		Use:   "check",
		Short: "Run one availability query and print open times",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			q, err := buildQuery(restaurant, date, meal, partySize)
			if err != nil {
				return err
			}

			sessions, err := sessionProvider(cfg)
			if err != nil {
				return err
			}
			client := dining.NewClient(sessions, dining.ClientOptions{
				BaseURL: cfg.APIBase,
				Timeout: cfg.CheckTimeout,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CheckTimeout)
			defer cancel()
			slots, err := client.CheckAvailability(ctx, q)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Println("no open times")
				return nil
			}

			link := dining.BookingLink(cfg.SiteRoot, q.EntityID, q.Date, q.PartySize)
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Time", "In Window", "Book"})
			for _, s := range slots {
				tw.AppendRow(table.Row{s.Time.String(), q.Meal.Contains(s.Time), link})
			}
			tw.Render()
			return nil
		},
	}

	c.Flags().StringVar(&restaurant, "restaurant", "", "restaurant/location id")
	c.Flags().StringVar(&date, "date", "", "reservation date (YYYY-MM-DD)")
	c.Flags().StringVar(&meal, "meal", "", "meal period (breakfast|lunch|dinner)")
	c.Flags().IntVar(&partySize, "party-size", 2, "party size")
	_ = c.MarkFlagRequired("restaurant")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("meal")

	return c
}
