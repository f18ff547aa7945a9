package filesystem

import (
	"fmt"
	"strings"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
)

const separator = "/"

// ConcatAsAbsolutePath returns in unchanged when it is absolute, otherwise
// in appended to base with a single separator.
func ConcatAsAbsolutePath(base, in string) (string, error) {
	const op = "filesystem.ConcatAsAbsolutePath"

	var out string
	if strings.HasPrefix(in, separator) {
		out = in
	} else {
		if !strings.HasPrefix(base, separator) {
			return "", fmt.Errorf("%s: base %q: %w", op, base, kerrors.ErrInvalidPath)
		}
		out = strings.TrimRight(base, separator) + separator + in
	}

	if len(out) > models.PathMax {
		return "", fmt.Errorf("%s: %d bytes: %w", op, len(out), kerrors.ErrPathTooLong)
	}
	return out, nil
}

// splitPath returns the segments of an absolute path, skipping empty ones.
func splitPath(path string) ([]string, error) {
	if !strings.HasPrefix(path, separator) {
		return nil, kerrors.ErrInvalidPath
	}
	if len(path) > models.PathMax {
		return nil, kerrors.ErrPathTooLong
	}

	var segments []string
	for _, s := range strings.Split(path, separator) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments, nil
}

func validName(name string) bool {
	return name != "" && len(name) <= models.PathMax && !strings.Contains(name, separator)
}
