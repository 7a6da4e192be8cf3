package api

import (
	"github.com/gin-gonic/gin"

	accountUsecase "mailvault/internal/account/usecase"
	mailUsecase "mailvault/internal/mail/usecase"
	"mailvault/pkg/config"
)

type Handler struct {
	accountUsecase accountUsecase.AccountUsecase
	queryUsecase   mailUsecase.QueryUsecase
	syncUsecase    mailUsecase.SyncUsecase
	config         *config.Config
}

func NewHandler(accountUc accountUsecase.AccountUsecase, queryUc mailUsecase.QueryUsecase, syncUc mailUsecase.SyncUsecase, cfg *config.Config) *Handler {
	return &Handler{
		accountUsecase: accountUc,
		queryUsecase:   queryUc,
		syncUsecase:    syncUc,
		config:         cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Auth-Token, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.accountUsecase, h.queryUsecase, h.syncUsecase, h.config)

	return r.Run(addr)
}
