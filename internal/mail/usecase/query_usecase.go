package usecase

import (
	"strings"
	"unicode/utf8"

	maildomain "mailvault/internal/mail/domain"
	maildto "mailvault/internal/mail/dto"
	mailrepo "mailvault/internal/mail/repository"
	"mailvault/pkg/fuzzy"
)

const previewLength = 200

// QueryUsecase serves reads: pagination, search, trash, detail, soft-delete.
type QueryUsecase interface {
	ListMessages(page, pageSize int, search string) (*maildto.MessagesResponse, error)
	GetMessage(id uint) (*maildomain.Message, error)
	HideMessage(id uint) error
	RestoreMessage(id uint) error
	ListTrash(page, pageSize int) (*maildto.MessagesResponse, error)
	Suggest(prefix string, limit int) ([]string, error)
}

type queryUsecase struct {
	messageRepo mailrepo.MessageRepository
}

// NewQueryUsecase creates a new instance of queryUsecase.
func NewQueryUsecase(messageRepo mailrepo.MessageRepository) QueryUsecase {
	return &queryUsecase{messageRepo: messageRepo}
}

func (u *queryUsecase) ListMessages(page, pageSize int, search string) (*maildto.MessagesResponse, error) {
	return u.list(page, pageSize, strings.Fields(search), false)
}

func (u *queryUsecase) ListTrash(page, pageSize int) (*maildto.MessagesResponse, error) {
	return u.list(page, pageSize, nil, true)
}

func (u *queryUsecase) list(page, pageSize int, tokens []string, hidden bool) (*maildto.MessagesResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	messages, err := u.messageRepo.List(page, pageSize, tokens, hidden)
	if err != nil {
		return nil, err
	}

	summaries := make([]*maildto.MessageSummary, 0, len(messages))
	for _, msg := range messages {
		summaries = append(summaries, &maildto.MessageSummary{
			ID:           msg.ID,
			Subject:      msg.Subject,
			FromAddr:     msg.FromAddr,
			DateReceived: msg.DateReceived,
			Hidden:       msg.Hidden,
			Preview:      preview(msg.BodyPlain),
		})
	}

	return &maildto.MessagesResponse{
		Page:     page,
		PageSize: pageSize,
		HasNext:  len(messages) == pageSize,
		Messages: summaries,
	}, nil
}

func (u *queryUsecase) GetMessage(id uint) (*maildomain.Message, error) {
	return u.messageRepo.GetVisible(id)
}

func (u *queryUsecase) HideMessage(id uint) error {
	return u.messageRepo.Hide(id)
}

func (u *queryUsecase) RestoreMessage(id uint) error {
	return u.messageRepo.Restore(id)
}

func (u *queryUsecase) Suggest(prefix string, limit int) ([]string, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	// Over-fetch so ranking has candidates beyond the alphabetical cutoff.
	tokens, err := u.messageRepo.Suggest(prefix, limit*3)
	if err != nil {
		return nil, err
	}
	return fuzzy.Rank(prefix, tokens, limit), nil
}

func preview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) > previewLength {
		runes := []rune(body)
		return string(runes[:previewLength]) + "..."
	}
	return body
}
