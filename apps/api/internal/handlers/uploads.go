package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentdash/apps/api/internal/ids"
	"rentdash/apps/api/internal/media"
	"rentdash/apps/api/internal/middleware"
)

type uploadJSON struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	ETag        string `json:"etag"`
}

// UploadProductImage stores a product photo. The type is sniffed from the
// bytes; the client's Content-Type is ignored.
func (h HandlerSet) UploadProductImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	if limit := h.cfg.Storage.MaxUploadSize; limit > 0 && header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return
	}

	format, head, err := media.Detect(file)
	if errors.Is(err, media.ErrUnsupported) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported_media_type"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file"})
		return
	}

	key := "products/" + ids.New() + format.Ext
	meta := map[string]string{"uploaded-by": middleware.CurrentEmail(c)}
	body := io.MultiReader(bytes.NewReader(head), file)

	result, err := h.uploads.Put(c.Request.Context(), key, body, header.Size, format.MIME, meta)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload_failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"upload": uploadJSON{
			Key:         result.Key,
			ContentType: format.MIME,
			SizeBytes:   result.Size,
			ETag:        result.ETag,
		},
	})
}
