package repository

import (
	accountdomain "mailvault/internal/account/domain"
)

// AccountRepository owns account rows and their stored credentials.
type AccountRepository interface {
	Create(account *accountdomain.Account) error
	List() ([]*accountdomain.Account, error)
	// GetByID preloads the OAuth token so the adapter kind can be derived.
	GetByID(id uint) (*accountdomain.Account, error)
	FindByEmail(email string) (*accountdomain.Account, error)
	UpdatePassword(id uint, encryptedPassword string) error
	// UpsertToken stores or replaces the account's OAuth token pair.
	UpsertToken(token *accountdomain.OAuthToken) error
	// InvalidateToken drops stored tokens after a failed refresh so the
	// account surfaces as "reauth required".
	InvalidateToken(accountID uint) error
	// DeleteCascade removes the account together with every owned row
	// (messages, image sources, audit entries, search tokens, tokens) in
	// one transaction.
	DeleteCascade(id uint) error
}
