package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpereira/agendai/internal/availability"
	"github.com/dpereira/agendai/internal/calendar"
	"github.com/dpereira/agendai/internal/config"
	"github.com/dpereira/agendai/internal/decider"
	"github.com/dpereira/agendai/internal/dispatch"
	"github.com/dpereira/agendai/internal/gateway"
	"github.com/dpereira/agendai/internal/messenger"
	"github.com/dpereira/agendai/internal/ops"
	"github.com/dpereira/agendai/internal/reconcile"
	"github.com/dpereira/agendai/internal/routing"
	"github.com/dpereira/agendai/internal/store"
	"github.com/dpereira/agendai/internal/timegrid"
	"github.com/dpereira/agendai/internal/transcribe"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server and background reconciler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("loading timezone: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			dbPath := cfg.Database.Path
			if !filepath.IsAbs(dbPath) && dbPath != ":memory:" {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				dbPath = filepath.Join(paths.Data, dbPath)
			}
			db, err := store.Open(dbPath, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			log.Info().Str("path", dbPath).Msg("database ready")

			identities := store.NewIdentityStore(db)
			bookings := store.NewBookingStore(db, loc)
			messages := store.NewMessageStore(db)

			cal, err := calendar.NewGoogleGateway(ctx, calendar.GoogleConfig{
				CredentialsFile: cfg.Calendar.CredentialsFile,
				CalendarID:      cfg.Calendar.CalendarID,
			}, loc, log)
			if err != nil {
				return fmt.Errorf("connecting to calendar: %w", err)
			}

			grid := timegrid.Default(loc)
			engine := availability.New(cal, grid, log)
			resolver := reconcile.NewResolver(cal, bookings, grid, log)

			msgr := messenger.NewEvolution(cfg.Messenger.BaseURL, cfg.Messenger.APIKey, cfg.Messenger.Instance, log)

			registry := ops.NewRegistry(
				ops.NewCheckAvailability(engine, grid, log),
				ops.NewScheduleAppointment(cal, identities, bookings, grid, log),
				ops.NewGetAppointments(resolver, log),
				ops.NewCancelAppointment(resolver, log),
				ops.NewRescheduleAppointment(resolver, grid, log),
				ops.NewHandover(msgr, identities, cfg.Clinic.OwnerPhone, log),
			)

			dec := decider.NewOpenAIDecider(cfg.Decider.BaseURL, cfg.Decider.APIKey, cfg.Decider.Model)
			loop := dispatch.NewLoop(dec, registry, log)

			// Voice notes ride on the same credentials as the decider.
			transcriber := transcribe.NewWhisper(cfg.Decider.BaseURL, cfg.Decider.APIKey, log)

			handler := routing.NewHandler(identities, messages, loop, msgr,
				cfg.Clinic.Professional, cfg.Clinic.Address, loc, log).
				WithTranscriber(transcriber)

			syncer := reconcile.NewSyncer(cal, identities, bookings,
				time.Duration(cfg.Sync.IntervalMinutes)*time.Minute, log)
			go syncer.Start(ctx)

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			srv := gateway.NewServer(addr, handler, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the webhook server port")
	return cmd
}
