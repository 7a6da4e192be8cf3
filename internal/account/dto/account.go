package dto

import "time"

// CreateAccountRequest registers an IMAP account.
type CreateAccountRequest struct {
	EmailAddress      string `json:"email_address"`
	IMAPHost          string `json:"imap_host"`
	IMAPPort          int    `json:"imap_port"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	AllowRemoteImages bool   `json:"allow_remote_images"`
}

// RotatePasswordRequest replaces a stored IMAP credential.
type RotatePasswordRequest struct {
	Password string `json:"password"`
}

// AccountResponse is the client-facing account shape; credentials never
// leave the server.
type AccountResponse struct {
	ID                uint      `json:"id"`
	EmailAddress      string    `json:"email_address"`
	AdapterKind       string    `json:"adapter_kind"`
	IMAPHost          string    `json:"imap_host,omitempty"`
	IMAPPort          int       `json:"imap_port,omitempty"`
	Username          string    `json:"username,omitempty"`
	AllowRemoteImages bool      `json:"allow_remote_images"`
	CreatedAt         time.Time `json:"created_at"`
}
