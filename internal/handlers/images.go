package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"imagestore/api/internal/apperr"
	"imagestore/api/internal/models"
	"imagestore/api/internal/service"
)

// imageResponse is the metadata shape for both upload and lookup. The
// payload bytes are never part of a JSON response.
type imageResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_in_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func toImageResponse(image models.Image) imageResponse {
	return imageResponse{
		ID:          image.ID,
		Filename:    image.Filename,
		ContentType: image.ContentType,
		SizeBytes:   image.SizeBytes,
		CreatedAt:   image.CreatedAt,
	}
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	image, err := h.images.Upload(c.Request.Context(), service.UploadInput{
		File:                file,
		DeclaredContentType: header.Header.Get("Content-Type"),
		Filename:            header.Filename,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toImageResponse(image))
}

func (h HandlerSet) GetImageMetadata(c *gin.Context) {
	image, err := h.images.Fetch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toImageResponse(image))
}

func (h HandlerSet) GetImageFile(c *gin.Context) {
	data, contentType, err := h.images.FetchFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

// renderError maps classified errors onto HTTP statuses: caller faults are
// 4xx, everything else is a 500 with the detail kept in the logs.
func (h HandlerSet) renderError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindTranscode:
		status = http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal_server_error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
