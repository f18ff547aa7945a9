package kerrors

import "github.com/S1riyS/ghost-vfs/internal/models"

// Status to errno mapping used by the syscall gateway.

func OpenCode(s models.OpenStatus) int64 {
	switch s {
	case models.OpenSuccessful:
		return 0
	case models.OpenNotFound:
		return -ENOENT
	}
	return -EIO
}

func ReadCode(s models.ReadStatus) int64 {
	switch s {
	case models.ReadSuccessful:
		return 0
	case models.ReadInvalidDescriptor:
		return -EBADF
	case models.ReadBusy:
		return -EAGAIN
	}
	return -EIO
}

func WriteCode(s models.WriteStatus) int64 {
	switch s {
	case models.WriteSuccessful:
		return 0
	case models.WriteNotSupported:
		return -EROFS
	case models.WriteInvalidDescriptor:
		return -EBADF
	case models.WriteBusy:
		return -EAGAIN
	}
	return -EIO
}

func CloseCode(s models.CloseStatus) int64 {
	switch s {
	case models.CloseSuccessful:
		return 0
	case models.CloseInvalidDescriptor:
		return -EBADF
	}
	return -EIO
}

func LengthCode(s models.LengthStatus) int64 {
	switch s {
	case models.LengthSuccessful:
		return 0
	case models.LengthNotFound:
		return -ENOENT
	case models.LengthInvalidDescriptor:
		return -EBADF
	}
	return -EIO
}

func StatCode(s models.StatStatus) int64 {
	switch s {
	case models.StatSuccessful:
		return 0
	case models.StatNotFound:
		return -ENOENT
	}
	return -EIO
}

func OpenDirectoryCode(s models.OpenDirectoryStatus) int64 {
	switch s {
	case models.OpenDirectorySuccessful:
		return 0
	case models.OpenDirectoryNotFound:
		return -ENOENT
	}
	return -EIO
}

// ReadDirectoryCode reports end of data as ENOENT, like the directory
// iteration endpoint of the vtfs protocol.
func ReadDirectoryCode(s models.ReadDirectoryStatus) int64 {
	switch s {
	case models.ReadDirectorySuccessful:
		return 0
	case models.ReadDirectoryEndOfData:
		return -ENOENT
	}
	return -EIO
}
