package domain

import (
	"context"
	"time"
)

// RawMessage is the uniform shape every mail source produces.
type RawMessage struct {
	// ExternalID is the provider-supplied stable id (Gmail message id).
	// Empty for IMAP; the dedup resolver derives a key instead.
	ExternalID string
	// MessageID is the RFC 5322 Message-ID header, if present.
	MessageID string
	Subject   string
	From      string
	To        []string
	Date      time.Time
	BodyPlain string
	BodyHTML  string
}

// MailSource yields raw messages for one account. A fetch is finite and
// not restartable mid-way: a failed fetch is retried from scratch on the
// next sync cycle.
type MailSource interface {
	FetchNew(ctx context.Context, max int) ([]RawMessage, error)
}

// Adapter kinds, derived from the account's stored credential shape.
const (
	AdapterIMAP  = "imap"
	AdapterGmail = "gmail"
)
