package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage defines the object operations the avatar store needs,
// implemented by the MinIO and GCS backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore keeps user avatars in object storage, one object per user.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore over the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// AvatarKey returns the object key for a user's avatar.
func AvatarKey(userID string) string {
	return fmt.Sprintf("avatars/%s", userID)
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads a user's avatar, replacing any previous one.
func (s *AvatarStore) Put(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	key := AvatarKey(userID)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get opens a reader for the avatar stored under key.
func (s *AvatarStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes a user's avatar object.
func (s *AvatarStore) Delete(ctx context.Context, userID string) error {
	return s.backend.Delete(ctx, AvatarKey(userID))
}

// Bucket returns the configured bucket name.
func (s *AvatarStore) Bucket() string {
	return s.backend.Bucket()
}
