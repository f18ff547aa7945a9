package models

import "time"

// StoredType is the node type column of the postgres backing store.
type StoredType int16

const (
	StoredTypeDir  StoredType = 0
	StoredTypeFile StoredType = 1
)

func (t StoredType) NodeType() NodeType {
	if t == StoredTypeDir {
		return NodeTypeFolder
	}
	return NodeTypeFile
}

type Dirent struct {
	Name string     `json:"name"`
	Ino  int64      `json:"ino"`
	Type StoredType `json:"type"`
}

type Inode struct {
	Ino    int64
	Volume string
	Type   StoredType
	Mode   uint32
	Size   int64
}

type Volume struct {
	Name     string
	RootIno  int64
	NextIno  int64
	CreateAt time.Time
}
