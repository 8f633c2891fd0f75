package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"rentdash/apps/api/internal/ids"
	"rentdash/apps/api/internal/middleware"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
)

const maxGuestbookMessage = 500

type guestbookJSON struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	AuthorEmail string    `json:"authorEmail"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

func guestbookResponse(e models.GuestbookEntry) guestbookJSON {
	return guestbookJSON{
		ID:          e.ID,
		AuthorID:    e.AuthorID,
		AuthorEmail: e.AuthorEmail,
		Message:     e.Message,
		CreatedAt:   e.CreatedAt,
	}
}

func (h HandlerSet) ListGuestbook(c *gin.Context) {
	limit, offset := pagination(c)

	entries, err := h.guestbook.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list guestbook failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list guestbook failed"})
		return
	}

	items := make([]guestbookJSON, 0, len(entries))
	for _, e := range entries {
		items = append(items, guestbookResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type guestbookRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h HandlerSet) CreateGuestbookEntry(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req guestbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_required"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_required"})
		return
	}
	if utf8.RuneCountInString(message) > maxGuestbookMessage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_too_long"})
		return
	}

	entry, err := h.guestbook.Create(c.Request.Context(), models.GuestbookEntry{
		ID:          ids.New(),
		AuthorID:    id.UserID,
		AuthorEmail: id.Email,
		Message:     message,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("create guestbook entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create entry failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": guestbookResponse(entry)})
}

// DeleteGuestbookEntry only removes the caller's own entries; someone else's
// looks the same as a missing one.
func (h HandlerSet) DeleteGuestbookEntry(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.guestbook.Delete(c.Request.Context(), c.Param("id"), id.UserID); err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry_not_found"})
			return
		}
		h.log.Error().Err(err).Msg("delete guestbook entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete entry failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
