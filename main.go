package main

import (
	"log"

	api "mailvault/cmd/api"
	accountdomain "mailvault/internal/account/domain"
	accountRepo "mailvault/internal/account/repository"
	accountUsecase "mailvault/internal/account/usecase"
	maildomain "mailvault/internal/mail/domain"
	mailRepo "mailvault/internal/mail/repository"
	mailUsecase "mailvault/internal/mail/usecase"
	"mailvault/pkg/config"
	"mailvault/pkg/crypto"
	"mailvault/pkg/database"
	"mailvault/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.APIToken == "" {
		log.Fatal("API_TOKEN must be set")
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&accountdomain.Account{},
		&accountdomain.OAuthToken{},
		&maildomain.Message{},
		&maildomain.ImageSource{},
		&maildomain.AuditLogEntry{},
		&maildomain.SearchToken{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Credentials at rest are encrypted with a key derived from the passphrase
	secrets, err := crypto.NewBox(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize secret storage:", err)
	}

	// Initialize repositories (dependency injection)
	messageRepository := mailRepo.NewMessageRepository(db)
	accountRepository := accountRepo.NewAccountRepository(db)

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)

	// Initialize use cases (dependency injection)
	syncUsecaseInstance := mailUsecase.NewSyncUsecase(messageRepository, accountRepository, secrets, gmailService, cfg)
	queryUsecaseInstance := mailUsecase.NewQueryUsecase(messageRepository)
	accountUsecaseInstance := accountUsecase.NewAccountUsecase(accountRepository, secrets, gmailService, cfg)

	// Initialize HTTP handler
	handler := api.NewHandler(accountUsecaseInstance, queryUsecaseInstance, syncUsecaseInstance, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
