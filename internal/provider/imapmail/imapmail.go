// Package imapmail implements the provider contract over a generic IMAP
// server (Gmail, iCloud, Outlook, self-hosted).
package imapmail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"bcfeed/internal/model"
	"bcfeed/internal/provider"
)

const transport = "imap"

// Config holds IMAP server settings. An app-specific password is
// recommended for providers that support them.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Folder   string
}

// Provider is an IMAP-backed message provider. It holds one connection for
// the lifetime of a sync run: Authenticate dials and logs in, Close logs out.
type Provider struct {
	cfg    Config
	log    *zap.Logger
	client *imapclient.Client
}

// New creates an IMAP provider. The connection is not opened until
// Authenticate is called.
func New(cfg Config, log *zap.Logger) *Provider {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	return &Provider{cfg: cfg, log: log}
}

// Authenticate dials the server, logs in, and selects the configured
// folder read-only.
func (p *Provider) Authenticate(_ context.Context) error {
	if p.cfg.Host == "" {
		return &provider.AuthError{Transport: transport, Message: "IMAP host not configured"}
	}
	if p.cfg.Username == "" {
		return &provider.AuthError{Transport: transport, Message: "IMAP username not configured"}
	}
	if p.cfg.Password == "" {
		return &provider.AuthError{Transport: transport, Message: "IMAP password not configured"}
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	var client *imapclient.Client
	var err error

	if p.cfg.UseTLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return &provider.AuthError{
			Transport: transport,
			Message:   fmt.Sprintf("could not connect to %s: %v", addr, err),
		}
	}

	if err := client.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return &provider.AuthError{
			Transport: transport,
			Message: fmt.Sprintf(
				"login failed for %s; for Gmail/iCloud/Outlook use an app-specific password: %v",
				p.cfg.Username, err,
			),
		}
	}

	opts := &imap.SelectOptions{ReadOnly: true}
	if _, err := client.Select(p.cfg.Folder, opts).Wait(); err != nil {
		_ = client.Logout().Wait()
		return &provider.AuthError{
			Transport: transport,
			Message:   fmt.Sprintf("selecting folder %q: %v", p.cfg.Folder, err),
		}
	}

	p.client = client
	return nil
}

// Search issues a UID SEARCH for the query and returns matching UIDs,
// newest first, capped at maxResults.
func (p *Provider) Search(
	_ context.Context,
	q provider.Query,
	maxResults int,
) ([]string, error) {
	if p.client == nil {
		return nil, &provider.AuthError{Transport: transport, Message: "not authenticated"}
	}

	criteria := buildSearchCriteria(q)
	p.log.Debug("imap uid search",
		zap.String("since", q.After.String()),
		zap.String("before", q.Before.String()),
	)

	searchData, err := p.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &provider.ProviderError{Transport: transport, Op: "search", Err: err}
	}

	uids := searchData.AllUIDs()

	// IMAP returns oldest first; reverse for newest first.
	ids := make([]string, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		ids = append(ids, strconv.FormatUint(uint64(uids[i]), 10))
	}

	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}

	return ids, nil
}

// Fetch downloads full message bodies in batches of batchSize, parsing each
// into a RawMessage. Individually unparsable messages are logged and omitted.
func (p *Provider) Fetch(
	ctx context.Context,
	ids []string,
	batchSize int,
) (map[string]provider.RawMessage, error) {
	if p.client == nil {
		return nil, &provider.AuthError{Transport: transport, Message: "not authenticated"}
	}
	if len(ids) == 0 {
		return map[string]provider.RawMessage{}, nil
	}
	if batchSize < 1 {
		batchSize = 20
	}

	results := make(map[string]provider.RawMessage, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, &provider.ProviderError{Transport: transport, Op: "fetch", Err: err}
		}

		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		p.log.Info("downloading messages", zap.Int("from", start), zap.Int("to", end))

		if err := p.fetchBatch(ids[start:end], results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// fetchBatch fetches one UID set and accumulates parsed messages.
func (p *Provider) fetchBatch(
	ids []string,
	results map[string]provider.RawMessage,
) error {
	uids := make([]imap.UID, 0, len(ids))
	byUID := make(map[imap.UID]string, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			p.log.Warn("skipping invalid message id", zap.String("id", id))
			continue
		}
		uid := imap.UID(n)
		uids = append(uids, uid)
		byUID[uid] = id
	}
	if len(uids) == 0 {
		return nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := p.client.Fetch(imap.UIDSetNum(uids...), fetchOpts)

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			p.log.Warn("failed to collect message", zap.Error(err))
			continue
		}

		id, ok := byUID[buf.UID]
		if !ok {
			continue
		}

		raw := provider.RawMessage{}
		if buf.Envelope != nil {
			raw.Subject = buf.Envelope.Subject
			raw.Date = model.DayOf(buf.Envelope.Date)
		}
		if body := buf.FindBodySection(bodySection); body != nil {
			raw.HTML = extractHTML(body)
		}

		if raw.HTML == "" && raw.Subject == "" {
			p.log.Warn("skipping message with no usable content", zap.String("id", id))
			continue
		}
		results[id] = raw
	}

	if err := fetchCmd.Close(); err != nil {
		return &provider.ProviderError{Transport: transport, Op: "fetch", Err: err}
	}
	return nil
}

// Close logs out of the IMAP session. Safe to call repeatedly.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Logout().Wait()
	p.client = nil
	return err
}

// buildSearchCriteria maps a Query onto IMAP SEARCH criteria. IMAP SINCE is
// inclusive and BEFORE is exclusive, matching the query's half-open window.
func buildSearchCriteria(q provider.Query) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{}

	if q.Sender != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: "From", Value: q.Sender,
		})
	}
	if q.SubjectContains != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{
			Key: "Subject", Value: q.SubjectContains,
		})
	}
	if !q.After.IsZero() {
		criteria.Since = q.After.Time()
	}
	if !q.Before.IsZero() {
		criteria.Before = q.Before.Time()
	}

	return criteria
}

// extractHTML parses a raw RFC 2822 message and returns its text/html body.
func extractHTML(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/html") {
			continue
		}
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}
		return string(body)
	}

	return ""
}
