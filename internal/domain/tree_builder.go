package domain

import (
	"slices"
	"strings"

	m "orisa.dev/pkg/orisa/internal/model"
)

// NodeIndex addresses a node inside a TestTree. Indices are stable for the
// lifetime of the tree.
type NodeIndex int

// NoNode is the parent of every root.
const NoNode NodeIndex = -1

type arenaNode struct {
	node     m.TestNode
	parent   NodeIndex
	children []NodeIndex
}

// TestTree is the collected test hierarchy stored as an index-addressed arena.
// Siblings are identified by name: inserting a chain whose elements match
// existing names reuses those nodes instead of creating duplicates.
type TestTree struct {
	nodes      []arenaNode
	roots      []NodeIndex
	rootByName map[string]NodeIndex
	byNodeID   map[string][]NodeIndex
	total      int
}

// NewTestTree returns an empty tree.
func NewTestTree() *TestTree {
	return &TestTree{
		rootByName: make(map[string]NodeIndex),
		byNodeID:   make(map[string][]NodeIndex),
	}
}

// BuildTree builds the tree for items. Total is len(items).
func BuildTree(items []m.AncestorChain) *TestTree {
	tree := NewTestTree()

	for _, chain := range items {
		tree.Insert(chain)
	}

	return tree
}

// Insert merges one ancestor chain into the tree and returns the index of its
// last element, or NoNode for an empty chain. Every call counts towards Total.
func (t *TestTree) Insert(chain m.AncestorChain) NodeIndex {
	t.total++

	if len(chain) == 0 {
		return NoNode
	}

	current, ok := t.Root(chain[0].Name)
	if !ok {
		current = t.add(chain[0], NoNode)
	}

	for _, collector := range chain[1:] {
		child := t.child(current, collector.Name)
		if child == NoNode {
			child = t.add(collector, current)
		}

		current = child
	}

	return current
}

func (t *TestTree) add(collector m.Collector, parent NodeIndex) NodeIndex {
	node := m.TestNode{
		Name:            collector.Name,
		Path:            collector.Path,
		Kind:            collector.Kind,
		DeclarationLine: collector.DeclarationLine,
		NodeID:          collector.NodeID,
	}

	idx := NodeIndex(len(t.nodes))

	if parent == NoNode {
		t.roots = append(t.roots, idx)
		t.rootByName[node.Name] = idx
	} else {
		node.ParentKind = t.nodes[parent].node.Kind
		node.ParentName = t.nodes[parent].node.Name
		t.nodes[parent].children = append(t.nodes[parent].children, idx)
	}

	t.nodes = append(t.nodes, arenaNode{node: node, parent: parent})
	t.byNodeID[node.NodeID] = append(t.byNodeID[node.NodeID], idx)

	return idx
}

func (t *TestTree) child(parent NodeIndex, name string) NodeIndex {
	for _, idx := range t.nodes[parent].children {
		if t.nodes[idx].node.Name == name {
			return idx
		}
	}

	return NoNode
}

// Len returns the number of nodes.
func (t *TestTree) Len() int { return len(t.nodes) }

// Total returns the number of items the tree was built from.
func (t *TestTree) Total() int { return t.total }

// Roots returns the root indices in first-seen order.
func (t *TestTree) Roots() []NodeIndex {
	return append([]NodeIndex(nil), t.roots...)
}

// Root returns the root called name.
func (t *TestTree) Root(name string) (NodeIndex, bool) {
	idx, ok := t.rootByName[name]
	return idx, ok
}

// Node returns the node at idx.
func (t *TestTree) Node(idx NodeIndex) m.TestNode {
	return t.nodes[idx].node
}

// Parent returns the parent of idx, or NoNode for roots.
func (t *TestTree) Parent(idx NodeIndex) NodeIndex {
	return t.nodes[idx].parent
}

// Children returns the children of idx in insertion order.
func (t *TestTree) Children(idx NodeIndex) []NodeIndex {
	return append([]NodeIndex(nil), t.nodes[idx].children...)
}

// Valid reports whether idx addresses a node of t.
func (t *TestTree) Valid(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(t.nodes)
}

// Walk visits every node depth first, roots in order. Returning false from fn
// skips the node's children.
func (t *TestTree) Walk(fn func(idx NodeIndex) bool) {
	for _, root := range t.roots {
		t.walk(root, fn)
	}
}

// WalkFrom visits idx and its descendants depth first.
func (t *TestTree) WalkFrom(idx NodeIndex, fn func(idx NodeIndex) bool) {
	t.walk(idx, fn)
}

func (t *TestTree) walk(idx NodeIndex, fn func(idx NodeIndex) bool) {
	if !fn(idx) {
		return
	}

	for _, child := range t.nodes[idx].children {
		t.walk(child, fn)
	}
}

// Subtree returns idx followed by all of its descendants, depth first.
func (t *TestTree) Subtree(idx NodeIndex) []NodeIndex {
	var out []NodeIndex

	t.walk(idx, func(i NodeIndex) bool {
		out = append(out, i)
		return true
	})

	return out
}

// FindByNodeID returns every node carrying nodeID. Leaf ids are unique, so
// for Function nodes the result has at most one element.
func (t *TestTree) FindByNodeID(nodeID string) []NodeIndex {
	return slices.Clone(t.byNodeID[nodeID])
}

// Chain returns the collectors from the root down to idx.
func (t *TestTree) Chain(idx NodeIndex) m.AncestorChain {
	var chain m.AncestorChain

	for current := idx; current != NoNode; current = t.nodes[current].parent {
		chain = append(chain, t.nodes[current].node.Collector())
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain
}

// Flatten returns one ancestor chain per leaf in depth first order. Building
// a tree from the result reproduces the structure of t.
func (t *TestTree) Flatten() []m.AncestorChain {
	var items []m.AncestorChain

	t.Walk(func(idx NodeIndex) bool {
		if len(t.nodes[idx].children) == 0 {
			items = append(items, t.Chain(idx))
		}

		return true
	})

	return items
}

// Breadcrumb renders the path from the root to idx, e.g.
// "tests > test_a.py > TestX > test_one".
func (t *TestTree) Breadcrumb(idx NodeIndex) string {
	chain := t.Chain(idx)
	names := make([]string, len(chain))

	for i, collector := range chain {
		names[i] = collector.Name
	}

	return strings.Join(names, " > ")
}

// Snapshot converts the arena into its nested wire form.
func (t *TestTree) Snapshot() m.TreeSnapshot {
	snapshot := m.TreeSnapshot{
		Roots: make([]m.NodeSnapshot, 0, len(t.roots)),
		Meta:  m.TreeMeta{Total: t.total},
	}

	for _, root := range t.roots {
		snapshot.Roots = append(snapshot.Roots, t.snapshot(root))
	}

	return snapshot
}

func (t *TestTree) snapshot(idx NodeIndex) m.NodeSnapshot {
	node := t.nodes[idx].node

	out := m.NodeSnapshot{
		Name:            node.Name,
		Path:            node.Path,
		Kind:            node.Kind,
		ParentKind:      node.ParentKind,
		ParentName:      node.ParentName,
		DeclarationLine: node.DeclarationLine,
		NodeID:          node.NodeID,
	}

	for _, child := range t.nodes[idx].children {
		out.Children = append(out.Children, t.snapshot(child))
	}

	return out
}

// FromSnapshot rebuilds an arena from the nested wire form. Siblings sharing
// a name are merged, as they would be by BuildTree.
func FromSnapshot(snapshot m.TreeSnapshot) *TestTree {
	tree := NewTestTree()

	for _, root := range snapshot.Roots {
		tree.insertSnapshot(NoNode, root)
	}

	tree.total = snapshot.Meta.Total

	return tree
}

func (t *TestTree) insertSnapshot(parent NodeIndex, snapshot m.NodeSnapshot) {
	collector := snapshot.Node().Collector()

	var idx NodeIndex

	if parent == NoNode {
		existing, ok := t.Root(collector.Name)
		if !ok {
			existing = t.add(collector, NoNode)
		}

		idx = existing
	} else {
		idx = t.child(parent, collector.Name)
		if idx == NoNode {
			idx = t.add(collector, parent)
		}
	}

	for _, child := range snapshot.Children {
		t.insertSnapshot(idx, child)
	}
}
