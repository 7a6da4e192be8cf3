package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	accountdomain "mailvault/internal/account/domain"
	accountdto "mailvault/internal/account/dto"
	"mailvault/internal/account/repository"
	maildomain "mailvault/internal/mail/domain"
	"mailvault/pkg/config"
	"mailvault/pkg/crypto"
	"mailvault/pkg/gmail"
)

const oauthStateTTL = 10 * time.Minute

// AccountUsecase manages accounts, their encrypted credentials and the
// Gmail OAuth consent flow.
type AccountUsecase interface {
	Create(req *accountdto.CreateAccountRequest) (*accountdto.AccountResponse, error)
	List() ([]*accountdto.AccountResponse, error)
	// Delete cascades: tokens, messages, image sources, audit entries and
	// the account row go together or not at all.
	Delete(id uint) error
	RotatePassword(id uint, newPassword string) error
	// AuthURL returns the Gmail consent URL carrying a signed state.
	AuthURL() (string, error)
	// HandleCallback validates state, exchanges the code, persists the
	// encrypted token pair and returns the (possibly new) account.
	HandleCallback(ctx context.Context, code, state string) (*accountdto.AccountResponse, error)
}

type accountUsecase struct {
	accountRepo  repository.AccountRepository
	secrets      *crypto.Box
	gmailService *gmail.Service
	config       *config.Config
}

// NewAccountUsecase creates a new instance of accountUsecase.
func NewAccountUsecase(accountRepo repository.AccountRepository, secrets *crypto.Box, gmailService *gmail.Service, cfg *config.Config) AccountUsecase {
	return &accountUsecase{
		accountRepo:  accountRepo,
		secrets:      secrets,
		gmailService: gmailService,
		config:       cfg,
	}
}

func (u *accountUsecase) Create(req *accountdto.CreateAccountRequest) (*accountdto.AccountResponse, error) {
	if _, err := mail.ParseAddress(req.EmailAddress); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", maildomain.ErrValidation)
	}
	if req.IMAPHost == "" || req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: imap_host, username and password are required", maildomain.ErrValidation)
	}
	if req.IMAPPort <= 0 || req.IMAPPort > 65535 {
		return nil, fmt.Errorf("%w: invalid imap_port", maildomain.ErrValidation)
	}

	encrypted, err := u.secrets.Encrypt(req.Password)
	if err != nil {
		return nil, err
	}

	account := &accountdomain.Account{
		EmailAddress:      req.EmailAddress,
		IMAPHost:          req.IMAPHost,
		IMAPPort:          req.IMAPPort,
		Username:          req.Username,
		PasswordEncrypted: encrypted,
		AllowRemoteImages: req.AllowRemoteImages,
	}
	if err := u.accountRepo.Create(account); err != nil {
		return nil, err
	}
	return toResponse(account), nil
}

func (u *accountUsecase) List() ([]*accountdto.AccountResponse, error) {
	accounts, err := u.accountRepo.List()
	if err != nil {
		return nil, err
	}
	responses := make([]*accountdto.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, toResponse(account))
	}
	return responses, nil
}

func (u *accountUsecase) Delete(id uint) error {
	return u.accountRepo.DeleteCascade(id)
}

func (u *accountUsecase) RotatePassword(id uint, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password must not be empty", maildomain.ErrValidation)
	}
	encrypted, err := u.secrets.Encrypt(newPassword)
	if err != nil {
		return err
	}
	return u.accountRepo.UpdatePassword(id, encrypted)
}

func (u *accountUsecase) AuthURL() (string, error) {
	state, err := u.signState()
	if err != nil {
		return "", err
	}
	return u.gmailService.AuthCodeURL(state), nil
}

func (u *accountUsecase) HandleCallback(ctx context.Context, code, state string) (*accountdto.AccountResponse, error) {
	if err := u.verifyState(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", maildomain.ErrValidation)
	}

	token, err := u.gmailService.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	email, err := u.gmailService.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := u.accountRepo.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// Host kept for a potential IMAP fallback on the same mailbox.
		account = &accountdomain.Account{
			EmailAddress: email,
			IMAPHost:     "imap.gmail.com",
			IMAPPort:     993,
			Username:     email,
		}
		if err := u.accountRepo.Create(account); err != nil {
			return nil, err
		}
	}

	encAccess, err := u.secrets.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := u.secrets.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, err
	}

	stored := &accountdomain.OAuthToken{
		AccountID:             account.ID,
		Provider:              maildomain.AdapterGmail,
		AccessTokenEncrypted:  encAccess,
		RefreshTokenEncrypted: encRefresh,
		Expiry:                token.Expiry,
		Scope:                 gmail.ReadScope,
	}
	if err := u.accountRepo.UpsertToken(stored); err != nil {
		return nil, err
	}

	account.OAuthToken = stored
	return toResponse(account), nil
}

// signState issues a short-lived signed nonce so the OAuth callback can
// reject forged redirects.
func (u *accountUsecase) signState() (string, error) {
	claims := jwt.MapClaims{
		"nonce": uuid.New().String(),
		"exp":   time.Now().Add(oauthStateTTL).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.APIToken))
}

func (u *accountUsecase) verifyState(state string) error {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(u.config.APIToken), nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: invalid oauth state", maildomain.ErrValidation)
	}
	return nil
}

func toResponse(account *accountdomain.Account) *accountdto.AccountResponse {
	return &accountdto.AccountResponse{
		ID:                account.ID,
		EmailAddress:      account.EmailAddress,
		AdapterKind:       account.AdapterKind(),
		IMAPHost:          account.IMAPHost,
		IMAPPort:          account.IMAPPort,
		Username:          account.Username,
		AllowRemoteImages: account.AllowRemoteImages,
		CreatedAt:         account.CreatedAt,
	}
}
