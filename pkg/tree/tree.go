package tree

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrUnknownNode is returned when a NodeID or name does not resolve.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoRoot is returned by [Builder.Build] when no root was added.
	ErrNoRoot = errors.New("tree has no root")

	// ErrNegativeDistance is returned by [Builder.Build] when a branch
	// length is negative or not finite.
	ErrNegativeDistance = errors.New("branch distance must be a finite value >= 0")
)

// NodeID addresses a node within its tree's arena.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// InnerPrefix marks names synthesized for internal nodes.
const InnerPrefix = "Inner"

// Node is one arena entry.
type Node struct {
	Name     string
	Parent   NodeID
	Children []NodeID
	Distance float64
	Events   Events
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

// IsRoot reports whether the node has no parent.
func (n Node) IsRoot() bool { return n.Parent == NoNode }

// IsInner reports whether the name was synthesized for an internal node.
func (n Node) IsInner() bool { return strings.HasPrefix(n.Name, InnerPrefix) }

// Tree is an immutable rooted tree. The zero value is not usable; build
// trees with [Builder] or [ParseNewick].
type Tree struct {
	nodes  []Node
	root   NodeID
	byName map[string]NodeID
}

// Root returns the root id.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of the node for id. It panics on an out-of-range id,
// like a slice index. Children and the event lists share storage with the
// tree and must not be modified.
func (t *Tree) Node(id NodeID) Node { return t.nodes[id] }

// Has reports whether id is in range.
func (t *Tree) Has(id NodeID) bool { return id >= 0 && int(id) < len(t.nodes) }

// Find returns the first node with the given name in level order.
func (t *Tree) Find(name string) (NodeID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Children returns the ordered children of id.
func (t *Tree) Children(id NodeID) []NodeID { return t.nodes[id].Children }

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].Parent }

// Name returns the node's name.
func (t *Tree) Name(id NodeID) string { return t.nodes[id].Name }

// Preorder returns all ids in depth-first preorder.
func (t *Tree) Preorder() []NodeID {
	return t.PreorderWith(t.Children)
}

// PreorderWith walks the tree in preorder using children to resolve child
// order. Layouts with switched nodes pass their own ordering.
func (t *Tree) PreorderWith(children func(NodeID) []NodeID) []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, id)
		kids := children(id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out
}

// LevelOrder returns all ids breadth first.
func (t *Tree) LevelOrder() []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	queue := []NodeID{t.root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, t.nodes[id].Children...)
	}
	return out
}

// Leaves returns the leaves in preorder.
func (t *Tree) Leaves() []NodeID {
	var out []NodeID
	for _, id := range t.Preorder() {
		if t.nodes[id].IsLeaf() {
			out = append(out, id)
		}
	}
	return out
}

// Path returns the ids from the root down to id, both included.
func (t *Tree) Path(id NodeID) []NodeID {
	var path []NodeID
	for cur := id; cur != NoNode; cur = t.nodes[cur].Parent {
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}

// MinDistance returns the smallest branch distance among non-root nodes,
// and false when the tree has a single node.
func (t *Tree) MinDistance() (float64, bool) {
	found := false
	minD := 0.0
	for i := range t.nodes {
		if NodeID(i) == t.root {
			continue
		}
		d := t.nodes[i].Distance
		if !found || d < minD {
			minD, found = d, true
		}
	}
	return minD, found
}

// MinPositiveDistance returns the smallest branch distance above zero
// among non-root nodes.
func (t *Tree) MinPositiveDistance() (float64, bool) {
	found := false
	minD := 0.0
	for i := range t.nodes {
		if NodeID(i) == t.root {
			continue
		}
		d := t.nodes[i].Distance
		if d > 0 && (!found || d < minD) {
			minD, found = d, true
		}
	}
	return minD, found
}
