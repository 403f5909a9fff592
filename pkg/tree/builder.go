package tree

import (
	"fmt"
	"math"
)

// Builder assembles a [Tree]. It is used by the Newick parser and by tests
// that construct small trees by hand.
type Builder struct {
	nodes []Node
	root  NodeID
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{root: NoNode}
}

// AddRoot creates the root node. Calling it twice replaces nothing; the
// second call returns the existing root.
func (b *Builder) AddRoot(name string, distance float64) NodeID {
	if b.root != NoNode {
		return b.root
	}
	b.root = b.add(Node{Name: name, Parent: NoNode, Distance: distance})
	return b.root
}

// AddChild appends a child to parent and returns its id.
func (b *Builder) AddChild(parent NodeID, name string, distance float64) NodeID {
	id := b.add(Node{Name: name, Parent: parent, Distance: distance})
	b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	return id
}

func (b *Builder) add(n Node) NodeID {
	b.nodes = append(b.nodes, n)
	return NodeID(len(b.nodes) - 1)
}

// SetName renames a node.
func (b *Builder) SetName(id NodeID, name string) { b.nodes[id].Name = name }

// SetDistance sets a node's branch distance.
func (b *Builder) SetDistance(id NodeID, d float64) { b.nodes[id].Distance = d }

// SetEvents replaces the list for kind at id.
func (b *Builder) SetEvents(id NodeID, kind EventKind, list EventList) {
	if !kind.Valid() {
		return
	}
	b.nodes[id].Events[kind] = list
}

// Parent returns the parent of id.
func (b *Builder) Parent(id NodeID) NodeID { return b.nodes[id].Parent }

// Len returns the number of nodes added so far.
func (b *Builder) Len() int { return len(b.nodes) }

// Find returns the first node with the given name in level order.
func (b *Builder) Find(name string) (NodeID, bool) {
	for _, id := range b.levelOrder() {
		if b.nodes[id].Name == name {
			return id, true
		}
	}
	return NoNode, false
}

// FindAll returns every node with the given name in level order.
func (b *Builder) FindAll(name string) []NodeID {
	var out []NodeID
	for _, id := range b.levelOrder() {
		if b.nodes[id].Name == name {
			out = append(out, id)
		}
	}
	return out
}

// Names returns every node name in level order.
func (b *Builder) Names() []string {
	ids := b.levelOrder()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = b.nodes[id].Name
	}
	return out
}

func (b *Builder) levelOrder() []NodeID {
	if b.root == NoNode {
		return nil
	}
	var out []NodeID
	queue := []NodeID{b.root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, b.nodes[id].Children...)
	}
	return out
}

// Build validates the nodes and returns the finished tree. The builder must
// not be used afterwards.
func (b *Builder) Build() (*Tree, error) {
	if b.root == NoNode {
		return nil, ErrNoRoot
	}
	for _, n := range b.nodes {
		if n.Distance < 0 || math.IsNaN(n.Distance) || math.IsInf(n.Distance, 0) {
			return nil, fmt.Errorf("%w: node %q has %v", ErrNegativeDistance, n.Name, n.Distance)
		}
	}
	t := &Tree{nodes: b.nodes, root: b.root, byName: make(map[string]NodeID, len(b.nodes))}
	for _, id := range t.LevelOrder() {
		name := t.nodes[id].Name
		if _, seen := t.byName[name]; !seen {
			t.byName[name] = id
		}
	}
	b.nodes = nil
	b.root = NoNode
	return t, nil
}
