package repository

import (
	maildomain "mailvault/internal/mail/domain"
)

// MessageRepository is the durable message store plus its search index.
type MessageRepository interface {
	// Insert persists a message with its image sources and search tokens
	// in one transaction. Returns domain.ErrDuplicateKey when
	// (account_id, external_id) already exists.
	Insert(msg *maildomain.Message, imageSrcs []string) error
	// Exists reports whether the dedup key is already stored.
	Exists(accountID uint, externalID string) (bool, error)
	// GetVisible returns the message unless hidden or absent
	// (domain.ErrNotFound in both cases).
	GetVisible(id uint) (*maildomain.Message, error)
	// Hide soft-deletes; idempotent, audits only actual transitions.
	Hide(id uint) error
	// Restore unhides; idempotent, audits only actual transitions.
	Restore(id uint) error
	// List returns a page ordered by date_received descending. Every
	// token must match (case-insensitive substring) in subject, from or
	// body_plain. hidden selects the trash listing.
	List(page, pageSize int, tokens []string, hidden bool) ([]*maildomain.Message, error)
	// Suggest returns distinct indexed tokens with the given prefix,
	// restricted to visible messages.
	Suggest(prefix string, limit int) ([]string, error)
}
