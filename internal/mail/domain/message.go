package domain

import "time"

// Message is one archived mail message. (AccountID, ExternalID) is the
// sole deduplication boundary: re-syncing an account must never produce
// a second row for the same external id.
type Message struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	AccountID         uint       `json:"account_id" gorm:"not null;uniqueIndex:idx_account_external"`
	ExternalID        string     `json:"external_id" gorm:"size:512;not null;uniqueIndex:idx_account_external"`
	Subject           string     `json:"subject"`
	FromAddr          string     `json:"from_addr"`
	ToAddrs           string     `json:"to_addrs"` // comma separated
	DateReceived      time.Time  `json:"date_received" gorm:"index"`
	BodyPlain         string     `json:"body_plain"`
	BodyHTMLRaw       string     `json:"body_html_raw"`
	BodyHTMLSanitized string     `json:"body_html_sanitized"`
	Hidden            bool       `json:"hidden" gorm:"default:false;index"`
	DeletedAt         *time.Time `json:"deleted_at"`
	CreatedAt         time.Time  `json:"created_at"`

	ImageSources []ImageSource `json:"image_sources,omitempty" gorm:"foreignKey:MessageID"`
}

// ImageSource is a remote image URL extracted during sanitization.
// Never fetched by the service; stored for later opt-in by the client.
type ImageSource struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	MessageID uint   `json:"message_id" gorm:"index;not null"`
	Src       string `json:"src" gorm:"not null"`
}

// Audit actions.
const (
	AuditActionDelete  = "delete"
	AuditActionRestore = "restore"
)

// AuditLogEntry records a hide or restore. Append-only, never mutated.
type AuditLogEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	MessageID  uint      `json:"message_id" gorm:"index;not null"`
	Action     string    `json:"action" gorm:"size:16;not null"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null"`
	Note       string    `json:"note,omitempty"`
}

// SearchToken maps a lowercase token from subject/from/body_plain to its
// message. Written in the same transaction as the message insert and only
// queried joined against message visibility.
type SearchToken struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	MessageID uint   `json:"-" gorm:"index;not null"`
	Token     string `json:"token" gorm:"size:128;index;not null"`
}

// SyncSummary reports one sync cycle. Skipped is approximate: it is not
// computed under a transaction shared with concurrent writers.
type SyncSummary struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}
