package models

type (
	NodeID        uint64
	PhysID        uint64
	TransactionID uint64
	FD            int32
	PID           uint32
	TID           uint32
)

// PathMax is the maximum length of an absolute path, in bytes.
const PathMax = 256

type NodeType uint8

const (
	NodeTypeNone NodeType = iota
	NodeTypeRoot
	NodeTypeMountpoint
	NodeTypeFolder
	NodeTypeFile
	NodeTypePipe
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeRoot:
		return "root"
	case NodeTypeMountpoint:
		return "mountpoint"
	case NodeTypeFolder:
		return "folder"
	case NodeTypeFile:
		return "file"
	case NodeTypePipe:
		return "pipe"
	}
	return "none"
}

// IsDirectory reports whether nodes of this type may have children.
func (t NodeType) IsDirectory() bool {
	return t == NodeTypeRoot || t == NodeTypeMountpoint || t == NodeTypeFolder
}

type TransactionStatus uint8

const (
	TransactionPending TransactionStatus = iota
	// TransactionRepeat marks a finished step of a multi-step transaction.
	// The engine re-issues the request with the same id.
	TransactionRepeat
	TransactionFinished
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionPending:
		return "pending"
	case TransactionRepeat:
		return "repeat"
	case TransactionFinished:
		return "finished"
	}
	return "unknown"
}

type SecurityLevel uint8

const (
	SecurityLevelKernel SecurityLevel = iota
	SecurityLevelUser
)
