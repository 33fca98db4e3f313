package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bcfeed/internal/provider/gmailapi"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize Gmail access via OAuth2",
	Long: `Runs the interactive Gmail OAuth2 flow and caches the token for
later sync runs. Requires the OAuth client secret file at the configured
gmail.credentials_file path.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		return gmailapi.Login(cmd.Context(), gmailapi.Config{
			CredentialsFile: cfg.Gmail.CredentialsFile,
			TokenFile:       cfg.Gmail.TokenFile,
		}, func(format string, args ...any) {
			fmt.Printf(format, args...)
		})
	},
}

func init() {
	RootCmd.AddCommand(loginCmd)
}
