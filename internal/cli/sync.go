package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dpereira/agendai/internal/calendar"
	"github.com/dpereira/agendai/internal/config"
	"github.com/dpereira/agendai/internal/reconcile"
	"github.com/dpereira/agendai/internal/store"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one calendar synchronization pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("loading timezone: %w", err)
			}

			ctx := cmd.Context()

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

			cal, err := calendar.NewGoogleGateway(ctx, calendar.GoogleConfig{
				CredentialsFile: cfg.Calendar.CredentialsFile,
				CalendarID:      cfg.Calendar.CalendarID,
			}, loc, log)
			if err != nil {
				return fmt.Errorf("connecting to calendar: %w", err)
			}

			syncer := reconcile.NewSyncer(cal,
				store.NewIdentityStore(db), store.NewBookingStore(db, loc), 0, log)
			return syncer.RunOnce(ctx)
		},
	}
}
