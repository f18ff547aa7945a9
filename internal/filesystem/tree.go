package filesystem

import (
	"fmt"
	"strings"
	"sync"

	"github.com/S1riyS/ghost-vfs/internal/models"
	"github.com/S1riyS/ghost-vfs/internal/pkg/kerrors"
)

// Tree maps virtual node ids to nodes. Nodes are created lazily and kept
// for the lifetime of the tree.
type Tree struct {
	mu    sync.RWMutex
	next  models.NodeID
	nodes map[models.NodeID]*Node
	root  *Node
}

func NewTree() *Tree {
	t := &Tree{
		next:  1,
		nodes: make(map[models.NodeID]*Node),
	}
	t.mu.Lock()
	t.root = t.createNodeLocked(models.NodeTypeRoot, "", 0)
	t.mu.Unlock()
	return t
}

func (t *Tree) Root() *Node {
	return t.root
}

// CreateNode allocates a detached node with a fresh id.
func (t *Tree) CreateNode() *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createNodeLocked(models.NodeTypeNone, "", 0)
}

func (t *Tree) createNodeLocked(typ models.NodeType, name string, physID models.PhysID) *Node {
	n := &Node{
		tree:   t,
		id:     t.next,
		typ:    typ,
		name:   name,
		physID: physID,
	}
	if typ.IsDirectory() {
		n.children = make(map[string]*Node)
	}
	t.next++
	t.nodes[n.id] = n
	return n
}

func (t *Tree) NodeByID(id models.NodeID) (*Node, error) {
	const op = "filesystem.Tree.NodeByID"

	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%s: node %d: %w", op, id, kerrors.ErrNotFound)
	}
	return n, nil
}

func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// FindExisting walks path through materialized nodes only. parent is the
// deepest node reached; child is set when the whole path resolved. current
// is the name of the segment the walk stopped at (the last segment when
// child is set, empty for the root).
func (t *Tree) FindExisting(path string) (parent, child *Node, current string, err error) {
	const op = "filesystem.Tree.FindExisting"

	segments, err := splitPath(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%s: %q: %w", op, path, err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.root
	if len(segments) == 0 {
		return node, node, "", nil
	}

	for i, seg := range segments {
		next := node.children[seg]
		if next == nil {
			return node, nil, seg, nil
		}
		if i == len(segments)-1 {
			return node, next, seg, nil
		}
		node = next
	}
	return node, nil, "", nil
}

// RealPath rebuilds the absolute path of a node.
func (t *Tree) RealPath(n *Node) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var segments []string
	for cur := n; cur != nil && cur != t.root; cur = cur.parent {
		segments = append(segments, cur.name)
	}
	if len(segments) == 0 {
		return separator
	}

	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteString(separator)
		b.WriteString(segments[i])
	}
	return b.String()
}

// materialize creates the node described by a delegate entry below parent.
// An existing child of the same name is returned instead. When expect is
// not empty the entry must carry that name.
func (t *Tree) materialize(parent *Node, e *DiscoveredEntry, expect string) (*Node, error) {
	const op = "filesystem.Tree.materialize"

	if e == nil {
		return nil, fmt.Errorf("%s: delegate reported no entry: %w", op, kerrors.ErrInvalidPath)
	}
	if !validName(e.Name) || (expect != "" && e.Name != expect) {
		return nil, fmt.Errorf("%s: entry name %q: %w", op, e.Name, kerrors.ErrInvalidPath)
	}
	switch e.Type {
	case models.NodeTypeFile, models.NodeTypeFolder, models.NodeTypePipe:
	default:
		return nil, fmt.Errorf("%s: entry type %s: %w", op, e.Type, kerrors.ErrInvalidPath)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !parent.typ.IsDirectory() {
		return nil, fmt.Errorf("%s: parent %d: %w", op, parent.id, kerrors.ErrNotDirectory)
	}
	if existing := parent.children[e.Name]; existing != nil {
		return existing, nil
	}

	n := t.createNodeLocked(e.Type, e.Name, e.PhysID)
	n.parent = parent
	parent.children[n.name] = n
	return n, nil
}

// mount attaches a mountpoint served by d below the root.
func (t *Tree) mount(name string, physID models.PhysID, d Delegate) (*Node, error) {
	const op = "filesystem.Tree.mount"

	if !validName(name) {
		return nil, fmt.Errorf("%s: %q: %w", op, name, kerrors.ErrInvalidPath)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.root.children[name]; ok {
		return nil, fmt.Errorf("%s: %q: %w", op, name, kerrors.ErrExists)
	}

	n := t.createNodeLocked(models.NodeTypeMountpoint, name, physID)
	n.parent = t.root
	n.delegate = d
	t.root.children[name] = n
	return n, nil
}

// setRootDelegate binds the delegate serving the root. That delegate sees
// the root as physical id 0.
func (t *Tree) setRootDelegate(d Delegate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root.delegate = d
}

// delegateFor returns the delegate of the nearest mountpoint at or above n.
func (t *Tree) delegateFor(n *Node) Delegate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for cur := n; cur != nil; cur = cur.parent {
		if cur.delegate != nil {
			return cur.delegate
		}
	}
	return nil
}
