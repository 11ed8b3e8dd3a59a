package storage

import (
	"time"

	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/config"
)

// Config is the storage configuration surface this package needs.
type Config = config.StorageConfig

// PresignedURL is a time-limited URL plus the object key it addresses.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// allowedContentTypes are the attachment types professionals may put on a
// quote: documents and photos.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
}

// ValidateContentType rejects attachment types outside the allow-list.
func (s *MinIOService) ValidateContentType(contentType string) error {
	if !allowedContentTypes[contentType] {
		return apperr.Validation("unsupported attachment type")
	}
	return nil
}

// ValidateFileSize rejects files over the configured limit.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return apperr.Validation("attachment size must be positive")
	}
	if s.maxFileSize > 0 && sizeBytes > s.maxFileSize {
		return apperr.Validation("attachment exceeds the maximum allowed size")
	}
	return nil
}
