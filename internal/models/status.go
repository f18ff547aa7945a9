package models

type DiscoveryStatus uint8

const (
	DiscoverySuccessful DiscoveryStatus = iota
	DiscoveryNotFound
	DiscoveryError
	DiscoveryBusy
)

type ReadStatus uint8

const (
	ReadSuccessful ReadStatus = iota
	ReadInvalidDescriptor
	ReadBusy
	ReadError
)

type WriteStatus uint8

const (
	WriteSuccessful WriteStatus = iota
	WriteNotSupported
	WriteInvalidDescriptor
	WriteBusy
	WriteError
)

type LengthStatus uint8

const (
	LengthSuccessful LengthStatus = iota
	LengthNotFound
	LengthInvalidDescriptor
	LengthError
)

type ReadDirectoryStatus uint8

const (
	ReadDirectorySuccessful ReadDirectoryStatus = iota
	ReadDirectoryEndOfData
	ReadDirectoryError
)

type OpenStatus uint8

const (
	OpenSuccessful OpenStatus = iota
	OpenNotFound
	OpenError
)

type OpenDirectoryStatus uint8

const (
	OpenDirectorySuccessful OpenDirectoryStatus = iota
	OpenDirectoryNotFound
	OpenDirectoryError
)

type CloseStatus uint8

const (
	CloseSuccessful CloseStatus = iota
	CloseInvalidDescriptor
	CloseError
)

type StatStatus uint8

const (
	StatSuccessful StatStatus = iota
	StatNotFound
	StatError
)

type CloneFDStatus uint8

const (
	CloneFDSuccessful CloneFDStatus = iota
	CloneFDError
)

type PipeStatus uint8

const (
	PipeSuccessful PipeStatus = iota
	PipeError
)

type RegisterAsDelegateStatus uint8

const (
	RegisterAsDelegateSuccessful RegisterAsDelegateStatus = iota
	RegisterAsDelegateFailedExisting
	RegisterAsDelegateFailedPermission
	RegisterAsDelegateError
)
