// Package mirror writes rendered pages to a directory tree that mirrors the
// crawled site's URL paths.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrPathTraversal is returned when a URL path would escape the root.
var ErrPathTraversal = errors.New("path traversal detected")

const (
	indexLeaf = "index"
	extension = ".html"
)

// ArtifactPath maps a page URL to its file under root:
//
//	https://example.com/a/b/c  -> <root>/example.com/a/b/c.html
//	https://example.com/a/b/   -> <root>/example.com/a/b/index.html
//	https://example.com/       -> <root>/example.com//index.html
//
// The last path segment becomes the file name; an empty last segment maps to
// index. Empty leading segments are dropped. Segments keep their escaped form.
func ArtifactPath(root string, u *url.URL) string {
	segments := strings.Split(u.EscapedPath(), "/")
	leaf := segments[len(segments)-1]
	if leaf == "" {
		leaf = indexLeaf
	}
	dirs := make([]string, 0, len(segments))
	for _, s := range segments[:len(segments)-1] {
		if s != "" {
			dirs = append(dirs, s)
		}
	}
	return fmt.Sprintf("%s/%s/%s/%s%s", root, u.Hostname(), strings.Join(dirs, "/"), leaf, extension)
}

// Store persists pages beneath a root directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates the root directory when missing and verifies it is writable.
func New(root string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("mirror root is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create mirror root: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat mirror root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("mirror root %s is not a directory", root)
	}

	probe := filepath.Join(root, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("mirror root is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("remove writability probe: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root is the directory artifacts are written beneath.
func (s *Store) Root() string { return s.root }

// Save writes markup to the artifact path of pageURL and returns that path.
// The write has completed (or failed) by the time Save returns.
func (s *Store) Save(ctx context.Context, pageURL *url.URL, markup []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("save %s: %w", pageURL, err)
	}
	target := ArtifactPath(s.root, pageURL)

	hostDir := filepath.Join(s.root, pageURL.Hostname())
	cleanTarget := filepath.Clean(target)
	if pageURL.Hostname() == "" || !strings.HasPrefix(cleanTarget, hostDir+string(filepath.Separator)) {
		return "", fmt.Errorf("save %s: %w", pageURL, ErrPathTraversal)
	}

	if err := os.MkdirAll(filepath.Dir(cleanTarget), 0o750); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", target, err)
	}
	if err := os.WriteFile(cleanTarget, markup, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	s.logger.Debug("Artifact written", zap.String("path", target), zap.Int("bytes", len(markup)))
	return target, nil
}
