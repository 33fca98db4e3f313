package imapmail

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"bcfeed/internal/model"
	"bcfeed/internal/provider"
)

func TestBuildSearchCriteria(t *testing.T) {
	q := provider.Query{
		Sender:          "noreply@bandcamp.com",
		SubjectContains: "New release from",
		After:           model.NewDay(2024, time.March, 1),
		Before:          model.NewDay(2024, time.March, 6),
	}

	criteria := buildSearchCriteria(q)

	if len(criteria.Header) != 2 {
		t.Fatalf("got %d header criteria, want 2", len(criteria.Header))
	}
	if criteria.Header[0].Key != "From" || criteria.Header[0].Value != q.Sender {
		t.Errorf("from criterion = %+v", criteria.Header[0])
	}
	if criteria.Header[1].Key != "Subject" || criteria.Header[1].Value != q.SubjectContains {
		t.Errorf("subject criterion = %+v", criteria.Header[1])
	}
	if !criteria.Since.Equal(q.After.Time()) {
		t.Errorf("Since = %v, want %v", criteria.Since, q.After.Time())
	}
	if !criteria.Before.Equal(q.Before.Time()) {
		t.Errorf("Before = %v, want %v", criteria.Before, q.Before.Time())
	}
}

func TestBuildSearchCriteriaEmptyQuery(t *testing.T) {
	criteria := buildSearchCriteria(provider.Query{})
	if len(criteria.Header) != 0 {
		t.Errorf("empty query should add no header criteria, got %v", criteria.Header)
	}
	if !criteria.Since.IsZero() || !criteria.Before.IsZero() {
		t.Error("empty query should leave date criteria unset")
	}
}

func TestExtractHTMLMultipart(t *testing.T) {
	raw := strings.ReplaceAll(`From: noreply@bandcamp.com
To: listener@example.com
Subject: New release from Ghost Label Records
Date: Mon, 04 Mar 2024 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

plain fallback
--b1
Content-Type: text/html; charset=utf-8

<html><body>announcement</body></html>
--b1--
`, "\n", "\r\n")

	html := extractHTML([]byte(raw))
	if !strings.Contains(html, "announcement") {
		t.Errorf("extractHTML = %q, want the text/html part", html)
	}
	if strings.Contains(html, "plain fallback") {
		t.Error("text/plain part leaked into the result")
	}
}

func TestExtractHTMLPlainOnly(t *testing.T) {
	raw := strings.ReplaceAll(`From: noreply@bandcamp.com
Subject: plain
Content-Type: text/plain; charset=utf-8

no html here
`, "\n", "\r\n")

	if html := extractHTML([]byte(raw)); html != "" {
		t.Errorf("plain-only message should yield no HTML, got %q", html)
	}
}

func TestExtractHTMLGarbage(t *testing.T) {
	if html := extractHTML([]byte("not an email at all")); html != "" {
		t.Errorf("unparsable input should yield empty, got %q", html)
	}
}

func TestAuthenticateRejectsMissingConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no host", Config{Username: "u", Password: "p"}},
		{"no username", Config{Host: "imap.example.com", Password: "p"}},
		{"no password", Config{Host: "imap.example.com", Username: "u"}},
	}

	for _, tc := range cases {
		p := New(tc.cfg, zap.NewNop())
		err := p.Authenticate(context.Background())
		if !provider.IsAuthError(err) {
			t.Errorf("%s: want auth error, got %v", tc.name, err)
		}
	}
}

func TestSearchRequiresAuthentication(t *testing.T) {
	p := New(Config{Host: "imap.example.com"}, zap.NewNop())
	_, err := p.Search(context.Background(), provider.Query{}, 10)
	if !provider.IsAuthError(err) {
		t.Errorf("want auth error before Authenticate, got %v", err)
	}
	if _, err := p.Fetch(context.Background(), []string{"1"}, 10); !provider.IsAuthError(err) {
		t.Errorf("want auth error before Authenticate, got %v", err)
	}
}

func TestCloseWithoutSession(t *testing.T) {
	p := New(Config{}, zap.NewNop())
	if err := p.Close(); err != nil {
		t.Errorf("Close on unopened provider: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("repeated Close: %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(Config{Host: "imap.example.com"}, zap.NewNop())
	if p.cfg.Port != 993 {
		t.Errorf("default port = %d, want 993", p.cfg.Port)
	}
	if p.cfg.Folder != "INBOX" {
		t.Errorf("default folder = %q, want INBOX", p.cfg.Folder)
	}
}
