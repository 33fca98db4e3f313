package gmailapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// tokenFromFile reads a cached OAuth2 token.
func tokenFromFile(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	return tok, nil
}

// saveToken writes the token with restrictive permissions, via a temp file
// replaced in place so a crash never leaves a truncated token behind.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}

	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

// Login runs the interactive OAuth2 authorization-code flow: it starts a
// loopback listener, prints the consent URL, waits for the redirect, and
// caches the exchanged token at cfg.TokenFile. printf receives user-facing
// instructions.
func Login(ctx context.Context, cfg Config, printf func(format string, args ...any)) error {
	conf, err := loadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("starting redirect listener: %w", err)
	}
	defer ln.Close()

	conf.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state, err := randomState()
	if err != nil {
		return err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this tab and return to bcfeed.")
		codeCh <- code
	})}
	go srv.Serve(ln)
	defer srv.Close()

	url := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	printf("Open the following URL in your browser to authorize Gmail access:\n\n  %s\n\n", url)
	printf("Waiting for authorization...\n")

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	if err := saveToken(cfg.TokenFile, tok); err != nil {
		return err
	}
	printf("Gmail token saved to %s\n", cfg.TokenFile)
	return nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
