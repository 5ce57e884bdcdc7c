package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/example/centralino/internal/config"
	"github.com/example/centralino/internal/db"
	"github.com/example/centralino/internal/migrate"
	"github.com/example/centralino/internal/store"
)

func newSeedCmd() *cobra.Command {
	var count int

	c := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake customer profiles for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			customers := store.NewCustomers(d)
			for i := 0; i < count; i++ {
				c := store.Customer{
					Phone:         gofakeit.Numerify("39##########"),
					Name:          gofakeit.Name(),
					Email:         gofakeit.Email(),
					LastVenue:     cfg.VenueName,
					LastPartySize: gofakeit.Number(1, 9),
					LastSeats:     gofakeit.Number(0, 2),
					UpdatedAt:     time.Now().UTC(),
				}
				if err := customers.Upsert(ctx, c); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stdout, "seeded %d customers\n", count)
			return nil
		},
	}

	c.Flags().IntVar(&count, "count", 20, "number of fake customers")
	return c
}
