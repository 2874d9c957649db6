package usecase

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"
	"office-dashboard/internal/shared/utils"

	"github.com/google/uuid"
)

// MediaUpload is one file received from a multipart form.
type MediaUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaUsecase stores uploaded files and the mediaAssets documents that
// describe them.
type MediaUsecase interface {
	Upload(ctx context.Context, file MediaUpload) (*model.MutationResult, error)
	URL(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) (*model.MutationResult, error)
}

type MediaService struct {
	docs      *DocumentService
	store     repository.ObjectStore
	maxBytes  int64
	urlExpiry time.Duration
	logger    logger.Logger
}

var _ MediaUsecase = (*MediaService)(nil)

func NewMediaService(docs *DocumentService, store repository.ObjectStore, maxBytes int64, urlExpiry time.Duration, log logger.Logger) *MediaService {
	return &MediaService{
		docs:      docs,
		store:     store,
		maxBytes:  maxBytes,
		urlExpiry: urlExpiry,
		logger:    log.WithComponent("media"),
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName reduces a client file name to a safe object key suffix.
func objectName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Trim(unsafeNameChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

// allowedContentType accepts images, videos and PDF documents.
func allowedContentType(contentType string) (string, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch {
	case strings.HasPrefix(mt, "image/"), strings.HasPrefix(mt, "video/"), mt == "application/pdf":
		return mt, true
	}
	return mt, false
}

func (s *MediaService) Upload(ctx context.Context, file MediaUpload) (*model.MutationResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	verrs := apperrors.NewValidationErrors()
	switch {
	case file.Size <= 0:
		verrs.Add("file", "file is empty", nil)
	case file.Size > s.maxBytes:
		verrs.Add("file", fmt.Sprintf("file is larger than %d MiB", s.maxBytes>>20), file.Size)
	}
	contentType, ok := allowedContentType(file.ContentType)
	if !ok {
		verrs.Add("contentType", "only images, videos and PDF files can be uploaded", file.ContentType)
	}
	if verrs.HasErrors() {
		verrs.Sort()
		return nil, verrs
	}

	key := p.TenantID + "/" + uuid.NewString() + "-" + objectName(file.Name)
	if err := s.store.Put(ctx, key, io.LimitReader(file.Body, file.Size), file.Size, contentType); err != nil {
		return nil, apperrors.NewInfrastructureError("upload failed").WithCause(err).WithComponent("media")
	}

	res, err := s.docs.Create(utils.SystemContext(ctx, p.TenantID, "media"), model.KindMediaAssets, map[string]interface{}{
		"name":        strings.TrimSpace(file.Name),
		"objectKey":   key,
		"contentType": contentType,
		"size":        file.Size,
	})
	if err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.logger.WithContext(ctx).WithFields(map[string]interface{}{"object_key": key, "error": rmErr.Error()}).Warn("orphaned media object")
		}
		return nil, err
	}
	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"object_key": key,
		"size":       file.Size,
		"user_id":    p.UserID,
	}).Info("media uploaded")
	res.Notice.Message = "Media asset uploaded"
	return res, nil
}

// URL returns a short-lived download link for the asset.
func (s *MediaService) URL(ctx context.Context, id string) (string, error) {
	doc, err := s.docs.Get(ctx, model.KindMediaAssets, id)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignedURL(ctx, doc.String("objectKey"), s.urlExpiry)
	if err != nil {
		return "", apperrors.NewInfrastructureError("could not sign media URL").WithCause(err).WithComponent("media")
	}
	return url, nil
}

func (s *MediaService) Delete(ctx context.Context, id string) (*model.MutationResult, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, model.KindMediaAssets, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Remove(ctx, doc.String("objectKey")); err != nil {
		return nil, apperrors.NewInfrastructureError("could not remove media object").WithCause(err).WithComponent("media")
	}
	return s.docs.Delete(utils.SystemContext(ctx, p.TenantID, "media"), model.KindMediaAssets, id)
}
