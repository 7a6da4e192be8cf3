package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	maildomain "mailvault/internal/mail/domain"
	maildto "mailvault/internal/mail/dto"
	"mailvault/internal/mail/usecase"
)

type MessageHandler struct {
	queryUsecase usecase.QueryUsecase
	syncUsecase  usecase.SyncUsecase
}

func NewMessageHandler(queryUsecase usecase.QueryUsecase, syncUsecase usecase.SyncUsecase) *MessageHandler {
	return &MessageHandler{
		queryUsecase: queryUsecase,
		syncUsecase:  syncUsecase,
	}
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	page, pageSize := paging(c)
	resp, err := h.queryUsecase.ListMessages(page, pageSize, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	msg, err := h.queryUsecase.GetMessage(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) HideMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.queryUsecase.HideMessage(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

func (h *MessageHandler) RestoreMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.queryUsecase.RestoreMessage(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored", "id": id})
}

func (h *MessageHandler) ListTrash(c *gin.Context) {
	page, pageSize := paging(c)
	resp, err := h.queryUsecase.ListTrash(page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MessageHandler) Suggestions(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	suggestions, err := h.queryUsecase.Suggest(c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, maildto.SuggestionsResponse{Suggestions: suggestions})
}

// SyncLegacy is the direct-credential IMAP sync kept for old clients.
func (h *MessageHandler) SyncLegacy(c *gin.Context) {
	var req maildto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AccountID == 0 {
		req.AccountID = 1
	}

	summary, err := h.syncUsecase.SyncIMAPDirect(c.Request.Context(), req.AccountID, req.Host, req.Port, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SyncAccount picks the adapter from the account's stored credentials.
func (h *MessageHandler) SyncAccount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	summary, err := h.syncUsecase.SyncAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *MessageHandler) SyncGmail(c *gin.Context) {
	var req maildto.GmailSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AccountID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required"})
		return
	}

	summary, err := h.syncUsecase.SyncGmail(c.Request.Context(), req.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func paging(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 50
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	return page, pageSize
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
	case errors.Is(err, maildomain.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, maildomain.ErrAdapterUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
