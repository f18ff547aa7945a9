package kerrors

import (
	"context"
	"errors"
)

// Linux kernel error codes
const (
	EPERM        int64 = 1  // Operation not permitted
	ENOENT       int64 = 2  // No such file or directory
	EIO          int64 = 5  // I/O error
	EBADF        int64 = 9  // Bad file descriptor
	EAGAIN       int64 = 11 // Try again
	ENOMEM       int64 = 12 // Out of memory
	EBUSY        int64 = 16 // Device or resource busy
	EEXIST       int64 = 17 // File exists
	ENOTDIR      int64 = 20 // Not a directory
	EISDIR       int64 = 21 // Is a directory
	EINVAL       int64 = 22 // Invalid argument
	EROFS        int64 = 30 // Read-only file system
	ENAMETOOLONG int64 = 36 // File name too long
	ETIMEDOUT    int64 = 110

	ENOMEM_NEG int64 = -ENOMEM // Out of memory (negative)
	EINVAL_NEG int64 = -EINVAL // Invalid argument (negative)
)

var (
	// resolution
	ErrNotFound     = errors.New("vfs: no such node")
	ErrNotDirectory = errors.New("vfs: not a directory")
	ErrPathTooLong  = errors.New("vfs: path too long")
	ErrInvalidPath  = errors.New("vfs: invalid path")
	ErrExists       = errors.New("vfs: already exists")

	// capability
	ErrNotSupported = errors.New("vfs: operation not supported by delegate")

	// permission
	ErrPermission = errors.New("vfs: insufficient security level")

	// resource
	ErrInvalidDescriptor = errors.New("vfs: invalid file descriptor")
	ErrBusy              = errors.New("vfs: busy")

	// internal consistency
	ErrUnknownTransaction = errors.New("vfs: unknown transaction")
	ErrAlreadyFinished    = errors.New("vfs: transaction already finished")
	ErrNoDelegate         = errors.New("vfs: no delegate for node")
)

// Code maps an error to a negative errno, 0 for nil.
func Code(err error) int64 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return -ENOENT
	case errors.Is(err, ErrNotDirectory):
		return -ENOTDIR
	case errors.Is(err, ErrPathTooLong):
		return -ENAMETOOLONG
	case errors.Is(err, ErrInvalidPath):
		return -EINVAL
	case errors.Is(err, ErrExists):
		return -EEXIST
	case errors.Is(err, ErrNotSupported):
		return -EROFS
	case errors.Is(err, ErrPermission):
		return -EPERM
	case errors.Is(err, ErrInvalidDescriptor):
		return -EBADF
	case errors.Is(err, ErrBusy):
		return -EBUSY
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return -ETIMEDOUT
	}
	return -EIO
}
