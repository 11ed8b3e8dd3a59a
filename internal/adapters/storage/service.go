package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AttachmentService scopes the object store to quote attachments: one bucket,
// one folder per lead/professional pair so a professional can stage uploads
// before the quote row exists.
type AttachmentService struct {
	store  *MinIOService
	bucket string
}

// NewAttachmentService creates the quote attachment service and makes sure
// the bucket exists.
func NewAttachmentService(ctx context.Context, store *MinIOService, bucket string) (*AttachmentService, error) {
	if err := store.EnsureBucketExists(ctx, bucket); err != nil {
		return nil, err
	}
	return &AttachmentService{store: store, bucket: bucket}, nil
}

// PresignUpload returns a presigned PUT URL for an attachment on the
// professional's quote folder for a lead.
func (s *AttachmentService) PresignUpload(ctx context.Context, leadID, professionalID uuid.UUID, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	folder := attachmentFolder(leadID, professionalID)
	return s.store.GenerateUploadURL(ctx, s.bucket, folder, fileName, contentType, sizeBytes)
}

// PresignDownload returns a presigned GET URL for an attachment key.
func (s *AttachmentService) PresignDownload(ctx context.Context, fileKey string) (*PresignedURL, error) {
	return s.store.GenerateDownloadURL(ctx, s.bucket, fileKey)
}

// Remove deletes an attachment object.
func (s *AttachmentService) Remove(ctx context.Context, fileKey string) error {
	return s.store.DeleteObject(ctx, s.bucket, fileKey)
}

func attachmentFolder(leadID, professionalID uuid.UUID) string {
	return fmt.Sprintf("quotes/%s/%s", leadID, professionalID)
}
