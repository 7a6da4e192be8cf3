package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	accountdomain "mailvault/internal/account/domain"
	accountrepo "mailvault/internal/account/repository"
	maildomain "mailvault/internal/mail/domain"
	mailrepo "mailvault/internal/mail/repository"
	"mailvault/pkg/config"
	"mailvault/pkg/crypto"
)

// setupSyncTestDB creates a test database for sync usecase tests
func setupSyncTestDB(t *testing.T) (*gorm.DB, func()) {
	tempDir, err := os.MkdirTemp("", "sync_usecase_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	db.AutoMigrate(&accountdomain.Account{}, &accountdomain.OAuthToken{},
		&maildomain.Message{}, &maildomain.ImageSource{}, &maildomain.AuditLogEntry{}, &maildomain.SearchToken{})

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func newSyncUsecaseForTest(t *testing.T, db *gorm.DB) (*syncUsecase, *accountdomain.Account) {
	secrets, err := crypto.NewBox("sync-test-passphrase")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	accountRepo := accountrepo.NewAccountRepository(db)
	account := &accountdomain.Account{EmailAddress: "sync@test.example"}
	if err := accountRepo.Create(account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	u := &syncUsecase{
		messageRepo: mailrepo.NewMessageRepository(db),
		accountRepo: accountRepo,
		secrets:     secrets,
		config: &config.Config{
			SyncMaxMessages: 50,
			SyncTimeout:     30 * time.Second,
		},
	}
	return u, account
}

// fakeSource serves a fixed batch of raw messages.
type fakeSource struct {
	raws []maildomain.RawMessage
	err  error
}

func (f *fakeSource) FetchNew(ctx context.Context, max int) ([]maildomain.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.raws) > max {
		return f.raws[:max], nil
	}
	return f.raws, nil
}

// blockingSource parks until released so a sync can be held in flight.
type blockingSource struct {
	started  chan struct{}
	released chan struct{}
}

func (b *blockingSource) FetchNew(ctx context.Context, max int) ([]maildomain.RawMessage, error) {
	close(b.started)
	select {
	case <-b.released:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSyncInsertsAndSanitizes(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	source := &fakeSource{raws: []maildomain.RawMessage{{
		MessageID: "<m1@test.example>",
		Subject:   "Greetings",
		From:      "sender@test.example",
		To:        []string{"a@test.example", "b@test.example"},
		Date:      time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		BodyPlain: "hello",
		BodyHTML:  `<p>hello</p><script>alert(1)</script><img src="https://cdn.example/x.png">`,
	}}}

	summary, err := u.syncWithLock(context.Background(), account, source)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Fetched != 1 || summary.Inserted != 1 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	var msg maildomain.Message
	if err := db.Preload("ImageSources").First(&msg, "account_id = ?", account.ID).Error; err != nil {
		t.Fatalf("load message: %v", err)
	}
	if msg.Subject != "Greetings" || msg.ToAddrs != "a@test.example, b@test.example" {
		t.Fatalf("message fields wrong: %+v", msg)
	}
	if msg.BodyHTMLRaw == msg.BodyHTMLSanitized {
		t.Fatal("sanitized body should differ from raw body")
	}
	if len(msg.ImageSources) != 1 || msg.ImageSources[0].Src != "https://cdn.example/x.png" {
		t.Fatalf("image sources wrong: %+v", msg.ImageSources)
	}
}

func TestSyncSkipsDuplicatesWithinBatch(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	raw := maildomain.RawMessage{
		MessageID: "<dup@test.example>",
		Subject:   "same message twice",
		From:      "sender@test.example",
		Date:      time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		BodyPlain: "body",
	}
	source := &fakeSource{raws: []maildomain.RawMessage{raw, raw}}

	summary, err := u.syncWithLock(context.Background(), account, source)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Inserted != 1 || summary.Skipped < 1 {
		t.Fatalf("duplicate in batch not collapsed: %+v", summary)
	}

	var count int64
	db.Model(&maildomain.Message{}).Where("account_id = ?", account.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestSyncIsIdempotentAcrossCycles(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	source := &fakeSource{raws: []maildomain.RawMessage{
		{MessageID: "<a@test>", Subject: "a", From: "x@test", Date: time.Now().UTC()},
		{MessageID: "<b@test>", Subject: "b", From: "x@test", Date: time.Now().UTC()},
	}}

	first, err := u.syncWithLock(context.Background(), account, source)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Inserted != 2 {
		t.Fatalf("first sync inserted %d, want 2", first.Inserted)
	}

	second, err := u.syncWithLock(context.Background(), account, source)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 2 {
		t.Fatalf("re-sync not idempotent: %+v", second)
	}

	var count int64
	db.Model(&maildomain.Message{}).Where("account_id = ?", account.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 rows after re-sync, got %d", count)
	}
}

func TestSyncRejectsConcurrentCycleForSameAccount(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	blocker := &blockingSource{
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := u.syncWithLock(context.Background(), account, blocker)
		done <- err
	}()

	<-blocker.started
	if _, err := u.syncWithLock(context.Background(), account, &fakeSource{}); !errors.Is(err, maildomain.ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}

	close(blocker.released)
	if err := <-done; err != nil {
		t.Fatalf("held sync failed: %v", err)
	}

	// The lock is released once the first cycle finishes.
	if _, err := u.syncWithLock(context.Background(), account, &fakeSource{}); err != nil {
		t.Fatalf("sync after release: %v", err)
	}
}

func TestSyncSurfacesFetchErrors(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	source := &fakeSource{err: maildomain.ErrAdapterUnavailable}
	if _, err := u.syncWithLock(context.Background(), account, source); !errors.Is(err, maildomain.ErrAdapterUnavailable) {
		t.Fatalf("expected ErrAdapterUnavailable, got %v", err)
	}
}

func TestSyncGmailRequiresStoredTokens(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	if _, err := u.SyncGmail(context.Background(), account.ID); !errors.Is(err, maildomain.ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure for account without tokens, got %v", err)
	}
}

func TestSyncIMAPDirectValidation(t *testing.T) {
	db, cleanup := setupSyncTestDB(t)
	defer cleanup()
	u, account := newSyncUsecaseForTest(t, db)

	if _, err := u.SyncIMAPDirect(context.Background(), account.ID, "", 0, "", ""); !errors.Is(err, maildomain.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing credentials, got %v", err)
	}

	if _, err := u.SyncIMAPDirect(context.Background(), 99999, "imap.test", 993, "u", "p"); !errors.Is(err, maildomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent account, got %v", err)
	}
}
