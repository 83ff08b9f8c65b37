package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"channel-chat-service/internal/models"
)

// UploadResult is the durable location of an uploaded binary.
type UploadResult struct {
	FileURL      string
	ResourceType string
}

// Uploader stores a binary out-of-band and returns its durable URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, content io.Reader) (UploadResult, error)
}

// HTTPUploader posts multipart uploads to an external media storage
// endpoint (an unsigned Cloudinary-style upload URL).
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

// NewHTTPUploader constructs an HTTPUploader against endpoint.
func NewHTTPUploader(endpoint string, timeout time.Duration) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload streams the file to the storage endpoint. The resource type is
// derived from the MIME type: image, video, or raw for everything else.
func (u *HTTPUploader) Upload(ctx context.Context, name, contentType string, content io.Reader) (UploadResult, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("media upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UploadResult{}, fmt.Errorf("media upload: unexpected status %d", resp.StatusCode)
	}

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return UploadResult{}, fmt.Errorf("media upload: decode response: %w", err)
	}
	if body.SecureURL == "" {
		return UploadResult{}, fmt.Errorf("media upload: response missing secure_url")
	}

	return UploadResult{FileURL: body.SecureURL, ResourceType: resourceTypeFor(contentType)}, nil
}

func resourceTypeFor(contentType string) string {
	switch models.TypeForMIME(contentType) {
	case models.MessageImage:
		return "image"
	case models.MessageVideo:
		return "video"
	default:
		return "raw"
	}
}
