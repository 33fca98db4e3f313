package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bcfeed/internal/model"
	"bcfeed/internal/store"
)

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a daily background sync on a schedule",
	Long: `Schedules one sync per day at the configured time, covering the
trailing window. Re-runs are cheap: already-scraped dates are skipped and
only today plus any new gaps hit the mail provider.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		hour, minute, err := parseDailyTime(cfg.Watch.Time)
		if err != nil {
			return err
		}

		loc := time.Local
		if cfg.Watch.Timezone != "" && cfg.Watch.Timezone != "Local" {
			loc, err = time.LoadLocation(cfg.Watch.Timezone)
			if err != nil {
				return fmt.Errorf("loading timezone %q: %w", cfg.Watch.Timezone, err)
			}
		}

		st, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening release cache: %w", err)
		}
		defer st.Close()

		syncer := newSyncer(cfg, st, log)

		runOnce := func() {
			today := model.DayOf(time.Now().In(loc))
			after := today.AddDays(-cfg.Watch.WindowDays + 1)

			releases, err := syncer.PopulateCache(
				cmd.Context(), after, today,
				cfg.Sync.MaxResults, cfg.Sync.BatchSize,
			)
			if err != nil {
				log.Error("scheduled sync failed", zap.Error(err))
				return
			}
			log.Info("scheduled sync complete",
				zap.Int("releases", len(releases)),
				zap.String("window", after.String()+" to "+today.String()),
			)
		}

		c := cron.New(cron.WithLocation(loc))
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := c.AddFunc(spec, runOnce); err != nil {
			return fmt.Errorf("scheduling daily sync: %w", err)
		}

		// Catch up immediately on start, then follow the schedule.
		runOnce()
		c.Start()
		log.Info("watching", zap.String("daily_at", cfg.Watch.Time))

		waitForShutdown(cmd.Context())

		stopCtx := c.Stop()
		<-stopCtx.Done()
		return nil
	},
}

func init() {
	RootCmd.AddCommand(watchCmd)
}

// parseDailyTime validates and splits an HH:MM schedule string.
func parseDailyTime(s string) (hour, minute int, err error) {
	if !timeHHMM.MatchString(s) {
		return 0, 0, fmt.Errorf("invalid watch time %q (want HH:MM)", s)
	}
	parts := strings.SplitN(s, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, nil
}

// waitForShutdown blocks until the context ends or an interrupt arrives.
func waitForShutdown(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-ctx.Done():
	case <-sig:
	}
}
