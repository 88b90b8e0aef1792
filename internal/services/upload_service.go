package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"tutorchat/internal/storage"
	"tutorchat/internal/transport/httpdto"
	chaterrors "tutorchat/pkg/errors"
)

// Content types accepted for message attachments.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// UploadService stores message attachments in S3. The returned URL becomes
// the content of a FILE or IMAGE message.
type UploadService struct {
	storage *storage.Client
	maxSize int64
}

func NewUploadService(client *storage.Client, maxSize int64) *UploadService {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &UploadService{storage: client, maxSize: maxSize}
}

func (s *UploadService) Upload(ctx context.Context, uploaderID uuid.UUID, filename, contentType string, size int64, body io.Reader) (httpdto.UploadResponse, error) {
	if s.storage == nil {
		return httpdto.UploadResponse{}, errors.New("s3 storage is not configured")
	}
	if uploaderID == uuid.Nil || filename == "" || size <= 0 {
		return httpdto.UploadResponse{}, chaterrors.ErrInvalidInput
	}
	if size > s.maxSize {
		return httpdto.UploadResponse{}, chaterrors.ErrTooLarge
	}
	if !allowedUploadTypes[strings.ToLower(contentType)] {
		return httpdto.UploadResponse{}, chaterrors.Invalidf("content type %q not allowed", contentType)
	}

	key := fmt.Sprintf("attachments/%s/%s%s", uploaderID, uuid.New(), path.Ext(filename))
	if err := s.storage.Put(ctx, key, contentType, body, size); err != nil {
		return httpdto.UploadResponse{}, err
	}

	url := s.storage.FileURL(key)
	if url == "" {
		presigned, err := s.storage.PresignGet(ctx, key)
		if err != nil {
			return httpdto.UploadResponse{}, err
		}
		url = presigned
	}

	return httpdto.UploadResponse{
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        size,
	}, nil
}
