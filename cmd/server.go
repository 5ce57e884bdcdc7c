package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/centralino/internal/auth"
	"github.com/example/centralino/internal/browser"
	"github.com/example/centralino/internal/config"
	"github.com/example/centralino/internal/db"
	"github.com/example/centralino/internal/engine"
	"github.com/example/centralino/internal/events"
	"github.com/example/centralino/internal/fidy"
	"github.com/example/centralino/internal/migrate"
	redisclient "github.com/example/centralino/internal/redis"
	"github.com/example/centralino/internal/store"
	"github.com/example/centralino/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking HTTP API and orchestration engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			authStore := auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey)
			bookings := store.NewBookings(d)
			customers := store.NewCustomers(d)

			var locker redisclient.Locker
			if cfg.RedisAddr != "" {
				rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
				if err != nil {
					return err
				}
				defer func() { _ = rdb.Close() }()
				locker = redisclient.NewPhoneLocker(rdb, cfg.LockTTL)
			}

			var publisher *events.Publisher
			if cfg.NATSURL != "" {
				publisher, err = events.Connect(cfg.NATSURL)
				if err != nil {
					return fmt.Errorf("nats connect: %w", err)
				}
				defer publisher.Close()
			}

			driver, err := browser.Start(browser.Options{
				Headless:     cfg.Headless,
				TimeoutMS:    cfg.StepTimeoutMS,
				NavTimeoutMS: cfg.NavTimeoutMS,
			})
			if err != nil {
				return err
			}
			defer func() { _ = driver.Stop() }()

			surfaces := &fidy.Factory{
				Driver:        driver,
				URL:           cfg.BookingURL,
				StepTimeoutMS: cfg.StepTimeoutMS,
				ScreenshotDir: cfg.ScreenshotDir,
			}

			eng := engine.New(engine.Options{
				VenueName:          cfg.VenueName,
				DefaultEmail:       cfg.DefaultEmail,
				TimeWindowMin:      cfg.TimeWindowMin,
				MaxSlotRetries:     cfg.MaxSlotRetries,
				MaxSubmitRetries:   cfg.MaxSubmitRetries,
				ConfirmPoll:        500 * time.Millisecond,
				ConfirmPolls:       12,
				DisableFinalSubmit: cfg.DisableFinalSubmit,
			}, surfaces, bookings, customers, publisher)

			srv := &web.Server{
				Engine:             eng,
				Bookings:           bookings,
				Customers:          customers,
				Auth:               authStore,
				Locker:             locker,
				DB:                 d,
				BookingURL:         cfg.BookingURL,
				VenueName:          cfg.VenueName,
				DefaultEmail:       cfg.DefaultEmail,
				DisableFinalSubmit: cfg.DisableFinalSubmit,
			}

			log.Printf("centralino server venue=%q target=%s dry_run=%v", cfg.VenueName, cfg.BookingURL, cfg.DisableFinalSubmit)
			return web.Start(ctx, cfg.ListenAddr, srv.Routes(), cfg.ShutdownTimeout)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
