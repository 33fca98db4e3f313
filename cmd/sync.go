package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bcfeed/internal/config"
	"bcfeed/internal/model"
	"bcfeed/internal/provider"
	"bcfeed/internal/provider/factory"
	"bcfeed/internal/store"
	syncpkg "bcfeed/internal/sync"
)

var timeNow = time.Now

var (
	syncAfter      string
	syncBefore     string
	syncMaxResults int
	syncBatchSize  int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Populate the release cache for a date window",
	Long: `Fetches release announcements for the given window. Dates already
scraped are served from cache; only uncached gaps are downloaded. Today is
always re-fetched since more announcements may still arrive.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		after, before, err := resolveWindow(syncAfter, syncBefore, cfg.Watch.WindowDays)
		if err != nil {
			return err
		}

		maxResults := cfg.Sync.MaxResults
		if syncMaxResults > 0 {
			maxResults = syncMaxResults
		}
		batchSize := cfg.Sync.BatchSize
		if syncBatchSize > 0 {
			batchSize = syncBatchSize
		}

		st, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening release cache: %w", err)
		}
		defer st.Close()

		syncer := newSyncer(cfg, st, log)
		releases, err := syncer.PopulateCache(cmd.Context(), after, before, maxResults, batchSize)
		if err != nil {
			return err
		}

		fmt.Printf("%d unique releases for %s to %s\n", len(releases), after, before)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncAfter, "after", "", "window start (YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncBefore, "before", "", "window end (YYYY-MM-DD, default today)")
	syncCmd.Flags().IntVar(&syncMaxResults, "max-results", 0, "abort if a gap returns more message IDs")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch", 0, "messages per download batch")
	RootCmd.AddCommand(syncCmd)
}

// newSyncer wires a Syncer over the configured provider and search terms.
func newSyncer(cfg *config.Config, st store.Store, log *zap.Logger) *syncpkg.Syncer {
	return syncpkg.New(st,
		func() (provider.Provider, error) { return factory.New(cfg, log) },
		syncpkg.WithLogger(log),
		syncpkg.WithSearch(cfg.Search.Sender, cfg.Search.SubjectContains),
	)
}

// resolveWindow parses the window flags, defaulting to the trailing
// windowDays days ending today.
func resolveWindow(afterFlag, beforeFlag string, windowDays int) (model.Day, model.Day, error) {
	today := model.DayOf(timeNow())

	before := today
	if beforeFlag != "" {
		d, err := model.ParseDay(beforeFlag)
		if err != nil {
			return model.Day{}, model.Day{}, err
		}
		before = d
	}

	after := before.AddDays(-windowDays + 1)
	if afterFlag != "" {
		d, err := model.ParseDay(afterFlag)
		if err != nil {
			return model.Day{}, model.Day{}, err
		}
		after = d
	}

	return after, before, nil
}
