package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bcfeed/internal/store"
)

var (
	releasesAfter  string
	releasesBefore string
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "Print cached releases for a date window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		after, before, err := resolveWindow(releasesAfter, releasesBefore, cfg.Watch.WindowDays)
		if err != nil {
			return err
		}

		st, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening release cache: %w", err)
		}
		defer st.Close()

		releases, err := st.ListReleases(cmd.Context(), after, before)
		if err != nil {
			return err
		}

		for _, r := range releases {
			kind := "album"
			if r.IsTrack {
				kind = "track"
			}
			title := r.ReleaseTitle
			if title == "" {
				title = "(untitled)"
			}
			artist := r.ArtistName
			if artist == "" {
				artist = r.PageName
			}
			fmt.Printf("%s  %-5s  %s - %s\n    %s\n", r.Date, kind, artist, title, r.URL)
		}
		fmt.Printf("%d releases for %s to %s\n", len(releases), after, before)
		return nil
	},
}

func init() {
	releasesCmd.Flags().StringVar(&releasesAfter, "after", "", "window start (YYYY-MM-DD)")
	releasesCmd.Flags().StringVar(&releasesBefore, "before", "", "window end (YYYY-MM-DD, default today)")
	RootCmd.AddCommand(releasesCmd)
}
