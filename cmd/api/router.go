package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	accountDelivery "mailvault/internal/account/delivery"
	accountUsecase "mailvault/internal/account/usecase"
	mailDelivery "mailvault/internal/mail/delivery"
	mailUsecase "mailvault/internal/mail/usecase"
	"mailvault/pkg/config"
)

func SetupRoutes(r *gin.Engine, accountUc accountUsecase.AccountUsecase, queryUc mailUsecase.QueryUsecase, syncUc mailUsecase.SyncUsecase, cfg *config.Config) {
	accountHandler := accountDelivery.NewAccountHandler(accountUc)
	messageHandler := mailDelivery.NewMessageHandler(queryUc, syncUc)

	// Health check (no auth required)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The browser lands here from Google's consent screen, so the token
	// header cannot be sent. The signed state parameter guards this route.
	r.GET("/gmail/callback", accountHandler.GmailCallback)

	authed := r.Group("/")
	authed.Use(accountDelivery.TokenAuthMiddleware(cfg.APIToken))
	{
		authed.POST("/sync", messageHandler.SyncLegacy)

		messages := authed.Group("/messages")
		{
			messages.GET("", messageHandler.ListMessages)
			messages.GET("/:id", messageHandler.GetMessage)
			messages.POST("/:id/delete", messageHandler.HideMessage)
			messages.POST("/:id/restore", messageHandler.RestoreMessage)
		}

		authed.GET("/trash", messageHandler.ListTrash)
		authed.GET("/search/suggestions", messageHandler.Suggestions)

		accounts := authed.Group("/accounts")
		{
			accounts.GET("", accountHandler.List)
			accounts.POST("", accountHandler.Create)
			accounts.DELETE("/:id", accountHandler.Delete)
			accounts.PUT("/:id/password", accountHandler.RotatePassword)
			accounts.POST("/:id/sync", messageHandler.SyncAccount)
		}

		gmail := authed.Group("/gmail")
		{
			gmail.GET("/auth_url", accountHandler.GmailAuthURL)
			gmail.POST("/sync", messageHandler.SyncGmail)
		}
	}
}
