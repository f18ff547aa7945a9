package models

// Syscall argument blocks. The caller fills the input fields, the kernel
// fills the rest exactly once when the operation completes.

type OpenCall struct {
	Path  string
	Flags int32

	FD     FD
	Status OpenStatus
}

type ReadCall struct {
	FD     FD
	Buffer []byte
	Length int64

	Result int64
	Status ReadStatus
}

type WriteCall struct {
	FD     FD
	Buffer []byte
	Length int64

	Result int64
	Status WriteStatus
}

type CloseCall struct {
	FD FD

	Status CloseStatus
}

// LengthCall queries by FD when Path is empty.
type LengthCall struct {
	Path           string
	FD             FD
	FollowSymlinks bool

	Length int64
	Status LengthStatus
}

type StatAttributes struct {
	NodeID NodeID
	Type   NodeType
	Length int64
}

type StatCall struct {
	Path           string
	FollowSymlinks bool

	Attributes StatAttributes
	Status     StatStatus
}

type FstatCall struct {
	FD FD

	Attributes StatAttributes
	Status     StatStatus
}

type DirectoryEntry struct {
	Name   string
	NodeID NodeID
	Type   NodeType
}

type DirectoryIterator struct {
	NodeID   NodeID
	Position int
	Entry    DirectoryEntry
}

type OpenDirectoryCall struct {
	Path string

	Iterator *DirectoryIterator
	Status   OpenDirectoryStatus
}

type ReadDirectoryCall struct {
	Iterator *DirectoryIterator

	Status ReadDirectoryStatus
}

type CloneFDCall struct {
	SourceFD  FD
	SourcePID PID
	TargetFD  FD // -1 allocates a fresh descriptor
	TargetPID PID

	Result FD
	Status CloneFDStatus
}

type PipeCall struct {
	WriteFD FD
	ReadFD  FD
	Status  PipeStatus
}

type RegisterAsDelegateCall struct {
	Name             string
	PhysMountpointID PhysID

	MountpointID NodeID
	Status       RegisterAsDelegateStatus
}
