package gcs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"

	"github.com/zuetani/earth-tribe/internal/domain/repository"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

// ObjectStore keeps media in a single GCS bucket. Objects are expected to be
// publicly readable; URLs are the plain storage.googleapis.com form.
type ObjectStore struct {
	client *storage.Client
	bucket string
}

func NewObjectStore(client *storage.Client, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

func (s *ObjectStore) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, s.client, s.bucket, path, contentType, r)
}

func (s *ObjectStore) URL(ctx context.Context, path string) (string, error) {
	if _, err := s.client.Bucket(s.bucket).Object(path).Attrs(ctx); err != nil {
		return "", mapErr(err)
	}
	return helpers.PublicURL(s.bucket, path), nil
}

func (s *ObjectStore) Delete(ctx context.Context, path string) error {
	return mapErr(s.client.Bucket(s.bucket).Object(path).Delete(ctx))
}

func mapErr(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return repository.ErrNotFound
	}
	return err
}

var _ repository.ObjectStore = (*ObjectStore)(nil)
