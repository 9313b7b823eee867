package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"blogcore/internal/storage"
)

// FileStorage keeps uploaded image blobs. Paths passed in and returned are
// slash-separated and relative to the store root.
type FileStorage interface {
	Save(ctx context.Context, file *multipart.FileHeader, relPath string) (int64, error)
	Delete(ctx context.Context, relPath string) error
	URL(relPath string) string
}

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

// LocalFileStorage writes blobs under baseDir and serves them from baseURL.
type LocalFileStorage struct {
	baseDir string
	baseURL string
	maxSize int64
}

func NewLocalFileStorage(baseDir, baseURL string, maxSize int64) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

func (s *LocalFileStorage) Save(ctx context.Context, file *multipart.FileHeader, relPath string) (int64, error) {
	const op = "filestorage.Save"

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if s.maxSize > 0 && file.Size > s.maxSize {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	if _, ok := imageExts[strings.ToLower(path.Ext(relPath))]; !ok {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrInvalidFileType)
	}

	fullPath, err := s.fullPath(relPath)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return 0, fmt.Errorf("%s: create directories: %w", op, err)
	}

	src, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("%s: open source file: %w", op, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrFileExists)
		}
		return 0, fmt.Errorf("%s: create destination file: %w", op, err)
	}
	defer dst.Close()

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, src)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			_ = os.Remove(fullPath)
			return 0, fmt.Errorf("%s: copy file: %w", op, copyErr)
		}
	case <-ctx.Done():
		<-done
		_ = os.Remove(fullPath)
		return 0, ctx.Err()
	}

	return size, nil
}

func (s *LocalFileStorage) Delete(ctx context.Context, relPath string) error {
	const op = "filestorage.Delete"

	fullPath, err := s.fullPath(relPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// URL returns the public address of a stored blob.
func (s *LocalFileStorage) URL(relPath string) string {
	segments := strings.Split(path.Clean("/"+relPath), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + strings.Join(segments, "/")
}

func (s *LocalFileStorage) BaseDir() string {
	return s.baseDir
}

// fullPath resolves relPath inside baseDir and refuses anything that would
// escape it.
func (s *LocalFileStorage) fullPath(relPath string) (string, error) {
	clean := path.Clean("/" + relPath)
	if clean == "/" {
		return "", storage.ErrFileNotFound
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}
