package kerrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want int64
	}{
		{nil, 0},
		{fmt.Errorf("op: %w", ErrNotFound), -ENOENT},
		{ErrNotDirectory, -ENOTDIR},
		{ErrPathTooLong, -ENAMETOOLONG},
		{ErrNotSupported, -EROFS},
		{ErrPermission, -EPERM},
		{ErrInvalidDescriptor, -EBADF},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), -ETIMEDOUT},
		{errors.New("boom"), -EIO},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err), "%v", tt.err)
	}
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, int64(0), OpenCode(models.OpenSuccessful))
	assert.Equal(t, -ENOENT, OpenCode(models.OpenNotFound))
	assert.Equal(t, -EAGAIN, ReadCode(models.ReadBusy))
	assert.Equal(t, -EROFS, WriteCode(models.WriteNotSupported))
	assert.Equal(t, -EBADF, LengthCode(models.LengthInvalidDescriptor))
	assert.Equal(t, -ENOENT, ReadDirectoryCode(models.ReadDirectoryEndOfData))
	assert.Equal(t, -EIO, StatCode(models.StatError))
}
