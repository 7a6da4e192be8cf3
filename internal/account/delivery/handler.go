package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	accountdto "mailvault/internal/account/dto"
	"mailvault/internal/account/usecase"
	maildomain "mailvault/internal/mail/domain"
)

type AccountHandler struct {
	accountUsecase usecase.AccountUsecase
}

func NewAccountHandler(accountUsecase usecase.AccountUsecase) *AccountHandler {
	return &AccountHandler{accountUsecase: accountUsecase}
}

func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountUsecase.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req accountdto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	account, err := h.accountUsecase.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.accountUsecase.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

func (h *AccountHandler) RotatePassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req accountdto.RotatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.accountUsecase.RotatePassword(id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rotated", "id": id})
}

func (h *AccountHandler) GmailAuthURL(c *gin.Context) {
	url, err := h.accountUsecase.AuthURL()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": url})
}

func (h *AccountHandler) GmailCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	account, err := h.accountUsecase.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "account": account})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, maildomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, maildomain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, maildomain.ErrAuthFailure):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "reauth_required": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
