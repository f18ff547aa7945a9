package filesystem

import (
	"github.com/S1riyS/ghost-vfs/internal/models"
)

// Node is one entry of the virtual tree. Identity fields are fixed at
// creation; links are owned by the tree and read under its lock.
type Node struct {
	tree *Tree

	id     models.NodeID
	typ    models.NodeType
	name   string
	physID models.PhysID

	// guarded by tree.mu
	parent   *Node
	children map[string]*Node
	delegate Delegate
}

func (n *Node) ID() models.NodeID { return n.id }
func (n *Node) Type() models.NodeType { return n.typ }
func (n *Node) Name() string { return n.name }
func (n *Node) PhysID() models.PhysID { return n.physID }
func (n *Node) IsDirectory() bool { return n.typ.IsDirectory() }

func (n *Node) Parent() *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.parent
}

// Child returns the materialized child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return n.children[name]
}

func (n *Node) ChildCount() int {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()
	return len(n.children)
}
