package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bcfeed/internal/credential"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Store the IMAP password in the system keyring",
	Long: `Prompts for the IMAP account password and stores it in the system
keyring under the configured imap.username. Use an app-specific password
for Gmail, iCloud, or Outlook accounts.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadApp()
		if err != nil {
			return err
		}
		defer log.Sync()

		if cfg.IMAP.Username == "" {
			return fmt.Errorf("imap.username is not set in %s", cfgPath)
		}

		fmt.Printf("Password for %s: ", cfg.IMAP.Username)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		password := strings.TrimSpace(string(raw))
		if password == "" {
			return fmt.Errorf("empty password not stored")
		}

		key := credential.IMAPPasswordKey(cfg.IMAP.Username)
		if err := credential.Set(key, password); err != nil {
			return err
		}

		fmt.Printf("Password stored for %s\n", cfg.IMAP.Username)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(passwdCmd)
}
