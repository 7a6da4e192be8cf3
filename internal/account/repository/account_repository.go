package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	accountdomain "mailvault/internal/account/domain"
	maildomain "mailvault/internal/mail/domain"
)

// accountRepository implements AccountRepository on gorm.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(account *accountdomain.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	return r.db.Create(account).Error
}

func (r *accountRepository) List() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.Preload("OAuthToken").Order("id").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) GetByID(id uint) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Preload("OAuthToken").First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, maildomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(email string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Preload("OAuthToken").Where("email_address = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdatePassword(id uint, encryptedPassword string) error {
	res := r.db.Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update("password_encrypted", encryptedPassword)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return maildomain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) UpsertToken(token *accountdomain.OAuthToken) error {
	token.UpdatedAt = time.Now().UTC()
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing accountdomain.OAuthToken
		err := tx.Where("account_id = ?", token.AccountID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(token).Error
		}
		if err != nil {
			return err
		}
		token.ID = existing.ID
		return tx.Save(token).Error
	})
}

func (r *accountRepository) InvalidateToken(accountID uint) error {
	return r.db.Where("account_id = ?", accountID).Delete(&accountdomain.OAuthToken{}).Error
}

func (r *accountRepository) DeleteCascade(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var account accountdomain.Account
		if err := tx.First(&account, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return maildomain.ErrNotFound
			}
			return err
		}

		messageIDs := tx.Model(&maildomain.Message{}).
			Select("id").
			Where("account_id = ?", id)

		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&maildomain.ImageSource{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&maildomain.AuditLogEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&maildomain.SearchToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&maildomain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&accountdomain.OAuthToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&account).Error
	})
}
