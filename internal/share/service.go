package share

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/securevault-gateway/internal/models"
)

var ErrInvalidRequest = Error("invalid request")

// BlobStore is the blob collaborator the upload path writes through.
type BlobStore interface {
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (string, error)
}

// CreateShareRequest describes one upload's policy. Zero MaxViews and
// ExpiryMins fall back to the configured defaults.
type CreateShareRequest struct {
	Filename    string
	ContentType string
	Size        int64
	MaxViews    int
	ExpiryMins  int
	OwnerID     *string
	Password    string
}

// Service creates share records for uploaded files.
type Service struct {
	repo              models.ShareRepository
	blobs             BlobStore
	defaultMaxViews   int
	defaultExpiryMins int
	now               func() time.Time
}

func NewService(repo models.ShareRepository, blobs BlobStore, defaultMaxViews, defaultExpiryMins int) *Service {
	return &Service{
		repo:              repo,
		blobs:             blobs,
		defaultMaxViews:   defaultMaxViews,
		defaultExpiryMins: defaultExpiryMins,
		now:               time.Now,
	}
}

// CreateShare stores the uploaded bytes under "<id>/<sanitized filename>" and
// persists the share record. Bytes go to the blob store before the metadata
// row exists, so a half-failed upload leaves an unreachable object, never a
// share pointing at nothing.
func (s *Service) CreateShare(ctx context.Context, req CreateShareRequest, reader io.Reader) (*models.ShareRecord, error) {
	filename := SanitizeFilename(req.Filename)
	if filename == "" {
		return nil, ErrInvalidRequest
	}

	maxViews := req.MaxViews
	if maxViews <= 0 {
		maxViews = s.defaultMaxViews
	}
	expiryMins := req.ExpiryMins
	if expiryMins <= 0 {
		expiryMins = s.defaultExpiryMins
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	id := uuid.New().String()
	objectKey, err := s.blobs.Put(ctx, id+"/"+filename, reader, req.Size, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	now := s.now().UTC()
	rec := &models.ShareRecord{
		ID:           id,
		FilePath:     objectKey,
		OriginalName: filename,
		ExpiresAt:    now.Add(time.Duration(expiryMins) * time.Minute),
		MaxViews:     maxViews,
		CurrentViews: 0,
		OwnerID:      req.OwnerID,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SanitizeFilename strips path components and characters that do not belong
// in an object key or a Content-Disposition header.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
