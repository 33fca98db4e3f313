// Package factory builds a configured mail provider from application
// configuration, resolving transport selection and credentials.
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"bcfeed/internal/config"
	"bcfeed/internal/credential"
	"bcfeed/internal/provider"
	"bcfeed/internal/provider/gmailapi"
	"bcfeed/internal/provider/imapmail"
)

// New creates a provider instance for the configured transport. The
// returned provider is not yet authenticated; it is scoped to one sync run
// and must be closed by the caller.
func New(cfg *config.Config, log *zap.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case "gmail":
		return gmailapi.New(gmailapi.Config{
			CredentialsFile: cfg.Gmail.CredentialsFile,
			TokenFile:       cfg.Gmail.TokenFile,
		}, log), nil

	case "imap":
		password, err := credential.Get(credential.IMAPPasswordKey(cfg.IMAP.Username))
		if err != nil {
			return nil, fmt.Errorf(
				"IMAP password not available for %s; run `bcfeed passwd` to store it: %w",
				cfg.IMAP.Username, err,
			)
		}
		return imapmail.New(imapmail.Config{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.Username,
			Password: password,
			UseTLS:   cfg.IMAP.UseTLS,
			Folder:   cfg.IMAP.Folder,
		}, log), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Provider)
	}
}
