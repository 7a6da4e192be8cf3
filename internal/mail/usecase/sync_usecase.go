package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	accountdomain "mailvault/internal/account/domain"
	accountrepo "mailvault/internal/account/repository"
	maildomain "mailvault/internal/mail/domain"
	mailrepo "mailvault/internal/mail/repository"
	"mailvault/pkg/config"
	"mailvault/pkg/crypto"
	"mailvault/pkg/gmail"
	"mailvault/pkg/imapclient"
	"mailvault/pkg/sanitizer"
)

// Sync cycle states.
type SyncState string

const (
	StateIdle       SyncState = "idle"
	StateFetching   SyncState = "fetching"
	StateResolving  SyncState = "resolving"
	StatePersisting SyncState = "persisting"
	StateDone       SyncState = "done"
	StateFailed     SyncState = "failed"
)

// SyncUsecase drives sync cycles: fetch, dedup, sanitize, persist.
type SyncUsecase interface {
	// SyncAccount runs one cycle for a stored account, selecting the
	// adapter from the account's credential shape.
	SyncAccount(ctx context.Context, accountID uint) (*maildomain.SyncSummary, error)
	// SyncGmail runs one cycle through the Gmail adapter only.
	SyncGmail(ctx context.Context, accountID uint) (*maildomain.SyncSummary, error)
	// SyncIMAPDirect runs one cycle with caller-supplied IMAP credentials
	// (the legacy /sync surface). The account must already exist.
	SyncIMAPDirect(ctx context.Context, accountID uint, host string, port int, username, password string) (*maildomain.SyncSummary, error)
}

type syncUsecase struct {
	messageRepo  mailrepo.MessageRepository
	accountRepo  accountrepo.AccountRepository
	secrets      *crypto.Box
	gmailService *gmail.Service
	config       *config.Config

	// accountLocks holds one entry per in-flight sync so at most one sync
	// runs per account; syncs of different accounts proceed concurrently.
	accountLocks sync.Map
}

// NewSyncUsecase creates a new instance of syncUsecase.
func NewSyncUsecase(messageRepo mailrepo.MessageRepository, accountRepo accountrepo.AccountRepository, secrets *crypto.Box, gmailService *gmail.Service, cfg *config.Config) SyncUsecase {
	return &syncUsecase{
		messageRepo:  messageRepo,
		accountRepo:  accountRepo,
		secrets:      secrets,
		gmailService: gmailService,
		config:       cfg,
	}
}

func (u *syncUsecase) SyncAccount(ctx context.Context, accountID uint) (*maildomain.SyncSummary, error) {
	account, err := u.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	if account.AdapterKind() == maildomain.AdapterGmail {
		return u.syncWithLock(ctx, account, u.gmailSourceFor(account))
	}
	source, err := u.imapSourceFor(account)
	if err != nil {
		return nil, err
	}
	return u.syncWithLock(ctx, account, source)
}

func (u *syncUsecase) SyncGmail(ctx context.Context, accountID uint) (*maildomain.SyncSummary, error) {
	account, err := u.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.AdapterKind() != maildomain.AdapterGmail {
		return nil, fmt.Errorf("%w: no Gmail tokens stored for account %d", maildomain.ErrAuthFailure, accountID)
	}
	return u.syncWithLock(ctx, account, u.gmailSourceFor(account))
}

func (u *syncUsecase) SyncIMAPDirect(ctx context.Context, accountID uint, host string, port int, username, password string) (*maildomain.SyncSummary, error) {
	account, err := u.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if host == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: host, username and password are required", maildomain.ErrValidation)
	}
	if port <= 0 {
		port = 993
	}
	return u.syncWithLock(ctx, account, imapclient.New(host, port, username, password))
}

// syncWithLock serializes syncs per account. A second request for an
// account already syncing is rejected, never interleaved.
func (u *syncUsecase) syncWithLock(ctx context.Context, account *accountdomain.Account, source maildomain.MailSource) (*maildomain.SyncSummary, error) {
	if _, loaded := u.accountLocks.LoadOrStore(account.ID, true); loaded {
		return nil, maildomain.ErrSyncInProgress
	}
	defer u.accountLocks.Delete(account.ID)

	ctx, cancel := context.WithTimeout(ctx, u.config.SyncTimeout)
	defer cancel()

	return u.runCycle(ctx, account, source)
}

// runCycle is one sync cycle: Fetching → Resolving → Persisting, committing
// message-by-message so earlier inserts survive later failures.
func (u *syncUsecase) runCycle(ctx context.Context, account *accountdomain.Account, source maildomain.MailSource) (*maildomain.SyncSummary, error) {
	state := StateFetching
	log.Printf("[Sync] account=%d state=%s", account.ID, state)

	raws, err := source.FetchNew(ctx, u.config.SyncMaxMessages)
	if err != nil {
		if errors.Is(err, maildomain.ErrAuthFailure) && account.AdapterKind() == maildomain.AdapterGmail {
			// Stored tokens are dead; drop them so the client is told to
			// reauthorize instead of retrying a broken refresh.
			if invErr := u.accountRepo.InvalidateToken(account.ID); invErr != nil {
				log.Printf("[Sync] account=%d failed to invalidate tokens: %v", account.ID, invErr)
			}
		}
		log.Printf("[Sync] account=%d state=%s err=%v", account.ID, StateFailed, err)
		return nil, err
	}

	summary := &maildomain.SyncSummary{Fetched: len(raws)}

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			// Partial progress stays committed; the remainder is picked up
			// by a later sync.
			log.Printf("[Sync] account=%d state=%s err=%v inserted=%d", account.ID, StateFailed, err, summary.Inserted)
			return nil, fmt.Errorf("%w: %v", maildomain.ErrAdapterUnavailable, err)
		}

		state = StateResolving
		key := ResolveKey(raw)

		exists, err := u.messageRepo.Exists(account.ID, key)
		if err != nil {
			return nil, err
		}
		if exists {
			summary.Skipped++
			continue
		}

		state = StatePersisting
		if err := u.persist(account.ID, key, raw, summary); err != nil {
			return nil, err
		}
	}

	state = StateDone
	log.Printf("[Sync] account=%d state=%s fetched=%d inserted=%d skipped=%d",
		account.ID, state, summary.Fetched, summary.Inserted, summary.Skipped)
	return summary, nil
}

func (u *syncUsecase) persist(accountID uint, key string, raw maildomain.RawMessage, summary *maildomain.SyncSummary) error {
	sanitized := sanitizer.Sanitize(raw.BodyHTML)

	date := raw.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	msg := &maildomain.Message{
		AccountID:         accountID,
		ExternalID:        key,
		Subject:           raw.Subject,
		FromAddr:          raw.From,
		ToAddrs:           strings.Join(raw.To, ", "),
		DateReceived:      date,
		BodyPlain:         raw.BodyPlain,
		BodyHTMLRaw:       raw.BodyHTML,
		BodyHTMLSanitized: sanitized.HTML,
	}

	err := u.messageRepo.Insert(msg, sanitized.ImageSources)
	if errors.Is(err, maildomain.ErrDuplicateKey) {
		// Safety net behind the Exists check; logged, never surfaced.
		log.Printf("[Sync] account=%d duplicate key %q skipped", accountID, key)
		summary.Skipped++
		return nil
	}
	if err != nil {
		return err
	}

	summary.Inserted++
	return nil
}

// gmailSourceFor builds a Gmail source from the account's stored tokens,
// persisting any refreshed token pair back encrypted.
func (u *syncUsecase) gmailSourceFor(account *accountdomain.Account) maildomain.MailSource {
	stored := account.OAuthToken

	accessToken, err := u.secrets.Decrypt(stored.AccessTokenEncrypted)
	if err != nil {
		return failingSource{fmt.Errorf("%w: stored access token unreadable", maildomain.ErrAuthFailure)}
	}
	refreshToken, err := u.secrets.Decrypt(stored.RefreshTokenEncrypted)
	if err != nil {
		return failingSource{fmt.Errorf("%w: stored refresh token unreadable", maildomain.ErrAuthFailure)}
	}

	onRefresh := func(token *oauth2.Token) error {
		encAccess, err := u.secrets.Encrypt(token.AccessToken)
		if err != nil {
			return err
		}
		encRefresh := stored.RefreshTokenEncrypted
		if token.RefreshToken != "" && token.RefreshToken != refreshToken {
			if encRefresh, err = u.secrets.Encrypt(token.RefreshToken); err != nil {
				return err
			}
		}
		return u.accountRepo.UpsertToken(&accountdomain.OAuthToken{
			AccountID:             account.ID,
			Provider:              stored.Provider,
			AccessTokenEncrypted:  encAccess,
			RefreshTokenEncrypted: encRefresh,
			Expiry:                token.Expiry,
			Scope:                 stored.Scope,
		})
	}

	return u.gmailService.NewSource(accessToken, refreshToken, stored.Expiry, onRefresh)
}

func (u *syncUsecase) imapSourceFor(account *accountdomain.Account) (maildomain.MailSource, error) {
	if account.IMAPHost == "" || account.Username == "" || account.PasswordEncrypted == "" {
		return nil, fmt.Errorf("%w: account %d has no usable IMAP credentials", maildomain.ErrValidation, account.ID)
	}
	password, err := u.secrets.Decrypt(account.PasswordEncrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: stored password unreadable", maildomain.ErrAuthFailure)
	}
	return imapclient.New(account.IMAPHost, account.IMAPPort, account.Username, password), nil
}

// failingSource defers a credential error until fetch so it flows through
// the normal failure path.
type failingSource struct{ err error }

func (f failingSource) FetchNew(context.Context, int) ([]maildomain.RawMessage, error) {
	return nil, f.err
}
