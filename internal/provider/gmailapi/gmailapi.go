// Package gmailapi implements the provider contract over the Gmail REST API
// with OAuth2 user credentials.
package gmailapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bcfeed/internal/model"
	"bcfeed/internal/provider"
)

const transport = "gmail"

// Config holds the OAuth2 client secret and cached-token file locations.
type Config struct {
	CredentialsFile string
	TokenFile       string
}

// Provider is a Gmail-API-backed message provider scoped to one sync run.
type Provider struct {
	cfg Config
	log *zap.Logger
	svc *gmail.Service
}

// New creates a Gmail provider. No network work happens until Authenticate.
func New(cfg Config, log *zap.Logger) *Provider {
	return &Provider{cfg: cfg, log: log}
}

// Authenticate builds the Gmail service from the cached OAuth token,
// refreshing it transparently when expired. A missing or unusable token
// means the interactive login flow has to be run first.
func (p *Provider) Authenticate(ctx context.Context) error {
	conf, err := loadOAuthConfig(p.cfg.CredentialsFile)
	if err != nil {
		return &provider.AuthError{Transport: transport, Message: err.Error()}
	}

	tok, err := tokenFromFile(p.cfg.TokenFile)
	if err != nil {
		return &provider.AuthError{
			Transport: transport,
			Message:   "no saved Gmail token; run `bcfeed login` to authorize",
		}
	}

	svc, err := gmail.NewService(ctx,
		option.WithTokenSource(conf.TokenSource(ctx, tok)),
	)
	if err != nil {
		return &provider.AuthError{
			Transport: transport,
			Message:   fmt.Sprintf("building Gmail service: %v", err),
		}
	}

	p.svc = svc
	return nil
}

// Search lists message IDs matching the query using Gmail query syntax,
// following result pages until exhausted or maxResults+1 IDs are seen. The
// extra ID lets the caller detect an over-limit result set.
func (p *Provider) Search(
	ctx context.Context,
	q provider.Query,
	maxResults int,
) ([]string, error) {
	if p.svc == nil {
		return nil, &provider.AuthError{Transport: transport, Message: "not authenticated"}
	}

	query := buildGmailQuery(q)
	p.log.Debug("gmail search", zap.String("query", query))

	var ids []string
	pageToken := ""
	for {
		call := p.svc.Users.Messages.List("me").Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, wrapGmailError("search", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		// One past the cap is enough to surface the over-limit condition.
		if res.NextPageToken == "" || (maxResults > 0 && len(ids) > maxResults) {
			break
		}
		pageToken = res.NextPageToken
	}

	return ids, nil
}

// Fetch downloads full messages one at a time, reporting progress every
// batchSize messages. Individually failing messages abort the fetch so the
// cache is never marked complete over a partial result; messages that fetch
// but carry no HTML are omitted.
func (p *Provider) Fetch(
	ctx context.Context,
	ids []string,
	batchSize int,
) (map[string]provider.RawMessage, error) {
	if p.svc == nil {
		return nil, &provider.AuthError{Transport: transport, Message: "not authenticated"}
	}
	if len(ids) == 0 {
		return map[string]provider.RawMessage{}, nil
	}
	if batchSize < 1 {
		batchSize = 20
	}

	results := make(map[string]provider.RawMessage, len(ids))
	for i, id := range ids {
		if i%batchSize == 0 {
			end := i + batchSize
			if end > len(ids) {
				end = len(ids)
			}
			p.log.Info("downloading messages", zap.Int("from", i), zap.Int("to", end))
		}

		msg, err := p.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, wrapGmailError("fetch", err)
		}

		raw := rawMessageFromPayload(msg.Payload)
		if raw.HTML == "" && raw.Subject == "" {
			p.log.Warn("skipping message with no usable content", zap.String("id", id))
			continue
		}
		results[id] = raw
	}

	return results, nil
}

// Close drops the service handle. Idempotent.
func (p *Provider) Close() error {
	p.svc = nil
	return nil
}

// buildGmailQuery converts a Query to Gmail search syntax. Gmail's
// after:/before: operators use YYYY/MM/DD and match the half-open window
// convention (after inclusive, before exclusive).
func buildGmailQuery(q provider.Query) string {
	query := ""
	if q.Sender != "" {
		query += fmt.Sprintf("from:%s ", q.Sender)
	}
	if q.SubjectContains != "" {
		query += fmt.Sprintf("subject:%q ", q.SubjectContains)
	}
	if !q.After.IsZero() {
		query += fmt.Sprintf("after:%s ", q.After.Time().Format("2006/01/02"))
	}
	if !q.Before.IsZero() {
		query += fmt.Sprintf("before:%s ", q.Before.Time().Format("2006/01/02"))
	}
	if len(query) > 0 {
		query = query[:len(query)-1]
	}
	return query
}

// rawMessageFromPayload extracts the HTML body, date, and subject from a
// full-format Gmail message payload.
func rawMessageFromPayload(payload *gmail.MessagePart) provider.RawMessage {
	raw := provider.RawMessage{}
	if payload == nil {
		return raw
	}

	for _, h := range payload.Headers {
		switch h.Name {
		case "Subject":
			raw.Subject = h.Value
		case "Date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				raw.Date = model.DayOf(t)
			}
		}
	}

	raw.HTML = findHTMLPart(payload)
	return raw
}

// findHTMLPart walks the MIME tree for the first decodable text/html part.
func findHTMLPart(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}

	if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
		if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
			return string(decoded)
		}
	}

	for _, child := range part.Parts {
		if html := findHTMLPart(child); html != "" {
			return html
		}
	}

	return ""
}

// decodeBase64URL decodes web-safe base64 with or without padding.
func decodeBase64URL(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

// wrapGmailError maps Gmail API failures onto the provider error taxonomy.
// A 401 means the grant was revoked and the user must re-run the login flow.
func wrapGmailError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 401 {
		return &provider.AuthError{
			Transport: transport,
			Message:   "Gmail access revoked or expired; run `bcfeed login` to re-authorize",
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &provider.AuthError{
			Transport: transport,
			Message:   fmt.Sprintf("token refresh failed; run `bcfeed login` to re-authorize: %v", err),
		}
	}

	return &provider.ProviderError{Transport: transport, Op: op, Err: err}
}

// loadOAuthConfig reads the OAuth2 client secret file.
func loadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("Gmail credentials not found at %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(b, gmail.MailGoogleComScope)
	if err != nil {
		return nil, fmt.Errorf("parsing Gmail credentials: %w", err)
	}
	return conf, nil
}
