package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashmind/internal/domain"
)

// ErrInvalidSource is returned for source paths that can never be synced.
var ErrInvalidSource = errors.New("invalid source")

// ResolveSource cleans a source path given by a user and returns it with its
// type. Git URLs are kept as given; local paths are made absolute and must
// name an existing directory, so one directory is stored under one path.
func ResolveSource(path string) (string, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", "", fmt.Errorf("%w: empty path", ErrInvalidSource)
	}

	sourceType := domain.SourceTypeFor(path)
	if sourceType == domain.SourceGit {
		return path, sourceType, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to resolve %s: %v", ErrInvalidSource, path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", ErrInvalidSource, path)
	}
	return abs, sourceType, nil
}
