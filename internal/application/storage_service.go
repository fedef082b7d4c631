package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
	"github.com/zuetani/earth-tribe/internal/observability"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

const DefaultMaxSizeMB = 5.0

const bytesPerMB = 1024 * 1024

// File is an upload candidate. Size is in bytes.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileValidation is the outcome of ValidateFile. Error is set only when Valid is false.
type FileValidation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type UploadResult struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ValidateFile checks content type first, then size.
func ValidateFile(f File, allowedTypes []string, maxSizeMB float64) FileValidation {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	allowed := false
	for _, t := range allowedTypes {
		if strings.EqualFold(t, f.ContentType) {
			allowed = true
			break
		}
	}
	if !allowed {
		return FileValidation{Error: fmt.Sprintf("File type %s is not allowed. Allowed types: %s", f.ContentType, strings.Join(allowedTypes, ", "))}
	}
	sizeMB := float64(f.Size) / bytesPerMB
	if sizeMB > maxSizeMB {
		return FileValidation{Error: fmt.Sprintf("File size %.2fMB exceeds maximum allowed size of %gMB", sizeMB, maxSizeMB)}
	}
	return FileValidation{Valid: true}
}

// StorageService stores user media in the object store.
type StorageService struct {
	Store        repo.ObjectStore
	Logger       *logrus.Logger
	AllowedTypes []string
	MaxSizeMB    float64
	Now          func() time.Time
}

func NewStorageService(store repo.ObjectStore, logger *logrus.Logger) *StorageService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &StorageService{
		Store:        store,
		Logger:       logger,
		AllowedTypes: DefaultAllowedTypes,
		MaxSizeMB:    DefaultMaxSizeMB,
		Now:          time.Now,
	}
}

// CreateUniqueFilename returns "<prefix>_<unix ms>_<random><.ext>", keeping the
// extension of original when it has one.
func (s *StorageService) CreateUniqueFilename(original, prefix string) string {
	return uniqueFilename(s.Now(), original, prefix)
}

func uniqueFilename(now time.Time, original, prefix string) string {
	if prefix == "" {
		prefix = "file"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%s_%d_%s%s", prefix, now.UnixMilli(), random, path.Ext(original))
}

// UploadFile stores f at objectPath without validating it.
func (s *StorageService) UploadFile(ctx context.Context, f File, objectPath string) (*UploadResult, error) {
	url, err := s.Store.Put(ctx, objectPath, f.ContentType, f.Body)
	if err != nil {
		s.Logger.WithError(err).WithField("path", objectPath).Error("upload failed")
		return nil, ErrUpload
	}
	return &UploadResult{URL: url, Path: objectPath}, nil
}

func (s *StorageService) UploadAvatar(ctx context.Context, f File, userID string) (*UploadResult, error) {
	return s.uploadValidated(ctx, "avatars", f, "avatars/"+userID, "avatar")
}

// UploadPostImage stores under the post id when known, otherwise under the author.
// UploadPostImage stores under posts/<userID>/, or posts/<postID>/<userID>/ when
// the image belongs to a post, so the uploader is always part of the path.
func (s *StorageService) UploadPostImage(ctx context.Context, f File, userID, postID string) (*UploadResult, error) {
	dir := "posts/" + userID
	if postID != "" {
		dir = "posts/" + postID + "/" + userID
	}
	return s.uploadValidated(ctx, "posts", f, dir, "image")
}

func (s *StorageService) UploadGroupImage(ctx context.Context, f File, groupID string) (*UploadResult, error) {
	return s.uploadValidated(ctx, "groups", f, "groups/"+groupID, "group")
}

func (s *StorageService) uploadValidated(ctx context.Context, category string, f File, dir, prefix string) (*UploadResult, error) {
	if v := ValidateFile(f, s.AllowedTypes, s.MaxSizeMB); !v.Valid {
		observability.Uploads.WithLabelValues(category, "rejected").Inc()
		return nil, &InvalidFileError{Reason: v.Error}
	}
	res, err := s.UploadFile(ctx, f, dir+"/"+s.CreateUniqueFilename(f.Name, prefix))
	observability.Uploads.WithLabelValues(category, observability.Result(err)).Inc()
	return res, err
}

func (s *StorageService) DeleteFile(ctx context.Context, objectPath string) error {
	if err := s.Store.Delete(ctx, objectPath); err != nil {
		entry := s.Logger.WithError(err).WithField("path", objectPath)
		if errors.Is(err, repo.ErrNotFound) {
			entry.Warn("delete of missing object")
		} else {
			entry.Error("delete failed")
		}
		return ErrDeletion
	}
	return nil
}

func (s *StorageService) DownloadURL(ctx context.Context, objectPath string) (string, error) {
	url, err := s.Store.URL(ctx, objectPath)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrNotFound
		}
		s.Logger.WithError(err).WithField("path", objectPath).Error("download url failed")
		return "", ErrUnavailable
	}
	return url, nil
}
