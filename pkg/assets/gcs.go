package assets

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Firebase Storage serves an object publicly through a download token kept in
// the object metadata under this key.
const downloadTokenKey = "firebaseStorageDownloadTokens"

const downloadURLFormat = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s"

// GCSStore stores images in the Firebase Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
}

func NewGCSStore(bucket *storage.BucketHandle, name string) *GCSStore {
	return &GCSStore{bucket: bucket, name: name}
}

func (s *GCSStore) Put(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = mimetype.Detect(data).String()
	w.Metadata = map[string]string{downloadTokenKey: uuid.NewString()}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "upload %s", path)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "upload %s", path)
	}
	return nil
}

func (s *GCSStore) URL(ctx context.Context, path string) (string, error) {
	obj := s.bucket.Object(path)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", errors.Wrap(ErrObjectNotFound, path)
		}
		return "", errors.Wrapf(err, "stat %s", path)
	}
	token := attrs.Metadata[downloadTokenKey]
	if token == "" {
		// Objects uploaded outside this service have no token yet.
		token = uuid.NewString()
		if _, err := obj.Update(ctx, storage.ObjectAttrsToUpdate{
			Metadata: map[string]string{downloadTokenKey: token},
		}); err != nil {
			return "", errors.Wrapf(err, "set download token on %s", path)
		}
	}
	return fmt.Sprintf(downloadURLFormat, s.name, url.PathEscape(path), token), nil
}

func (s *GCSStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(ErrObjectNotFound, path)
	}
	return errors.Wrapf(err, "delete %s", path)
}
