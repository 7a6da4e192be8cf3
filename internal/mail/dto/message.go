package dto

import "time"

// MessageSummary is the list-view shape: no bodies beyond a short preview.
type MessageSummary struct {
	ID           uint      `json:"id"`
	Subject      string    `json:"subject"`
	FromAddr     string    `json:"from_addr"`
	DateReceived time.Time `json:"date_received"`
	Hidden       bool      `json:"hidden"`
	Preview      string    `json:"preview"`
}

// MessagesResponse is a page of messages. HasNext is inferred from whether
// a full page was returned; there is no total-count contract.
type MessagesResponse struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	HasNext  bool              `json:"has_next"`
	Messages []*MessageSummary `json:"messages"`
}

// SuggestionsResponse carries search-token prefix suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// SyncRequest is the legacy direct-credential IMAP sync payload.
type SyncRequest struct {
	AccountID uint   `json:"account_id"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// GmailSyncRequest selects the account for an explicit Gmail sync.
type GmailSyncRequest struct {
	AccountID uint `json:"account_id"`
}
