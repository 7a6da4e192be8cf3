package domain

import "time"

// Account is a registered mailbox. The active adapter kind is derived at
// query time: an account with a stored Gmail token pair syncs through the
// Gmail API, anything else through IMAP.
type Account struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	EmailAddress      string    `json:"email_address" gorm:"size:255;not null"`
	IMAPHost          string    `json:"imap_host" gorm:"size:255"`
	IMAPPort          int       `json:"imap_port"`
	Username          string    `json:"username" gorm:"size:255"`
	PasswordEncrypted string    `json:"-" gorm:"size:1024"`
	AllowRemoteImages bool      `json:"allow_remote_images" gorm:"default:false"`
	CreatedAt         time.Time `json:"created_at"`

	OAuthToken *OAuthToken `json:"-" gorm:"foreignKey:AccountID"`
}

// OAuthToken stores an account's OAuth token pair, encrypted at rest.
type OAuthToken struct {
	ID                    uint      `json:"-" gorm:"primaryKey"`
	AccountID             uint      `json:"-" gorm:"uniqueIndex;not null"`
	Provider              string    `json:"provider" gorm:"size:32;not null"`
	AccessTokenEncrypted  string    `json:"-" gorm:"size:4096"`
	RefreshTokenEncrypted string    `json:"-" gorm:"size:4096"`
	Expiry                time.Time `json:"expiry"`
	Scope                 string    `json:"scope" gorm:"size:512"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// AdapterKind reports which mail source the account uses. Gmail tokens
// take precedence over IMAP credentials.
func (a *Account) AdapterKind() string {
	if a.OAuthToken != nil && a.OAuthToken.RefreshTokenEncrypted != "" {
		return "gmail"
	}
	return "imap"
}
