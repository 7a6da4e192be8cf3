package repository

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"

	maildomain "mailvault/internal/mail/domain"
)

const (
	maxTokensPerMessage = 512
	maxTokenRunes       = 128
)

// messageRepository implements MessageRepository on gorm.
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Insert(msg *maildomain.Message, imageSrcs []string) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		for _, src := range imageSrcs {
			img := maildomain.ImageSource{MessageID: msg.ID, Src: src}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
		}

		tokens := Tokenize(msg.Subject, msg.FromAddr, msg.BodyPlain)
		for _, tok := range tokens {
			entry := maildomain.SearchToken{MessageID: msg.ID, Token: tok}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return maildomain.ErrDuplicateKey
	}
	return err
}

func (r *messageRepository) Exists(accountID uint, externalID string) (bool, error) {
	var count int64
	err := r.db.Model(&maildomain.Message{}).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		Count(&count).Error
	return count > 0, err
}

func (r *messageRepository) GetVisible(id uint) (*maildomain.Message, error) {
	var msg maildomain.Message
	err := r.db.Preload("ImageSources").First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, maildomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.Hidden {
		// Hidden messages are only reachable through the trash listing.
		return nil, maildomain.ErrNotFound
	}
	return &msg, nil
}

func (r *messageRepository) Hide(id uint) error {
	return r.setHidden(id, true, maildomain.AuditActionDelete)
}

func (r *messageRepository) Restore(id uint) error {
	return r.setHidden(id, false, maildomain.AuditActionRestore)
}

func (r *messageRepository) setHidden(id uint, hidden bool, action string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var msg maildomain.Message
		if err := tx.First(&msg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return maildomain.ErrNotFound
			}
			return err
		}

		if msg.Hidden == hidden {
			// Idempotent: already in the requested state.
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"hidden": hidden}
		if hidden {
			updates["deleted_at"] = &now
		} else {
			updates["deleted_at"] = nil
		}
		if err := tx.Model(&msg).Updates(updates).Error; err != nil {
			return err
		}

		audit := maildomain.AuditLogEntry{
			MessageID:  id,
			Action:     action,
			OccurredAt: now,
		}
		return tx.Create(&audit).Error
	})
}

func (r *messageRepository) List(page, pageSize int, tokens []string, hidden bool) ([]*maildomain.Message, error) {
	if page < 1 {
		page = 1
	}

	query := r.db.Model(&maildomain.Message{}).Where("hidden = ?", hidden)
	for _, tok := range tokens {
		pattern := "%" + strings.ToLower(tok) + "%"
		query = query.Where(
			"(LOWER(subject) LIKE ? OR LOWER(from_addr) LIKE ? OR LOWER(body_plain) LIKE ?)",
			pattern, pattern, pattern,
		)
	}

	var messages []*maildomain.Message
	err := query.
		Order("date_received DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) Suggest(prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}

	var tokens []string
	err := r.db.Model(&maildomain.SearchToken{}).
		Distinct("token").
		Joins("JOIN messages ON messages.id = search_tokens.message_id").
		Where("messages.hidden = ?", false).
		Where(`token LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("token").
		Limit(limit).
		Pluck("token", &tokens).Error
	return tokens, err
}

// escapeLike neutralizes LIKE metacharacters in user input so a typed "%"
// matches a literal percent sign instead of every token.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// Tokenize extracts the distinct lowercase words indexed for a message.
func Tokenize(fields ...string) []string {
	seen := make(map[string]struct{})
	var tokens []string

	for _, field := range fields {
		words := strings.FieldsFunc(strings.ToLower(field), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, w := range words {
			// Cap in runes, not bytes: a byte slice can split a multibyte
			// character and Postgres rejects invalid UTF-8.
			if utf8.RuneCountInString(w) > maxTokenRunes {
				runes := []rune(w)
				w = string(runes[:maxTokenRunes])
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			tokens = append(tokens, w)
			if len(tokens) >= maxTokensPerMessage {
				return tokens
			}
		}
	}
	return tokens
}
