package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"channel-chat-service/internal/media"
)

// UploadHandler accepts a multipart file and forwards it to the external
// media storage.
type UploadHandler struct {
	uploader media.Uploader
	logger   *zap.SugaredLogger
}

// NewUploadHandler builds an UploadHandler.
func NewUploadHandler(uploader media.Uploader, logger *zap.SugaredLogger) *UploadHandler {
	return &UploadHandler{uploader: uploader, logger: logger}
}

// PostUpload streams the uploaded file to media storage and returns its
// durable URL. Upload failures surface as 502: the persistence of the
// message referencing the file never starts.
func (h *UploadHandler) PostUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	result, err := h.uploader.Upload(c.Request.Context(), header.Filename, contentType, file)
	if err != nil {
		h.logger.Warnw("media upload failed", "filename", header.Filename, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "media upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"fileUrl":      result.FileURL,
		"resourceType": result.ResourceType,
	})
}
