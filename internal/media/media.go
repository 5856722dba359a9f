// Package media removes uploaded files (profile pictures, payment receipts,
// speaker images) when the owning account is deleted.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"confhub/internal/logging"
)

var ErrInvalidKey = errors.New("invalid media key")

// Store deletes stored media by key. Deleting a missing key is not an error.
type Store interface {
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps uploads on the local filesystem under Dir.
type LocalStore struct {
	Dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir}
}

// Delete removes the file for key. Keys are stored as public paths such as
// "/uploads/abc.png"; only the part below the uploads root is used.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	rel, err := cleanKey(key)
	if err != nil {
		return err
	}
	p := filepath.Join(s.Dir, filepath.FromSlash(rel))
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

// cleanKey strips URL and uploads prefixes and rejects keys that escape
// the root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if i := strings.Index(k, "://"); i >= 0 {
		// absolute URL: keep the path
		k = k[i+3:]
		if j := strings.Index(k, "/"); j >= 0 {
			k = k[j:]
		} else {
			k = ""
		}
	}
	k = strings.TrimPrefix(k, "/")
	k = strings.TrimPrefix(k, "public/")
	k = strings.TrimPrefix(k, "uploads/")
	if k == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(k, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	k = path.Clean(k)
	if k == "." || strings.HasPrefix(k, "/") {
		return "", ErrInvalidKey
	}
	return k, nil
}

// DeleteAll removes every key, logging failures instead of stopping. It
// returns the joined errors.
func DeleteAll(ctx context.Context, s Store, log logging.Logger, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			log.Warn(ctx, "failed to delete media", "key", k, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
