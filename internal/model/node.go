// Package model defines the data structures shared by the dispatcher, the run
// orchestrator and the user interfaces.
package model

// NodeKind is the kind of collector a test tree node stands for.
type NodeKind string

const (
	// KindDirectory is a filesystem directory (or package) collector.
	KindDirectory NodeKind = "Directory"
	// KindModule is a single test file.
	KindModule NodeKind = "Module"
	// KindClass is a test class inside a module.
	KindClass NodeKind = "Class"
	// KindFunction is a runnable test unit. Always a leaf.
	KindFunction NodeKind = "Function"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindDirectory, KindModule, KindClass, KindFunction:
		return true
	}

	return false
}

// Collector is one element of an ancestor chain as reported by the runner.
type Collector struct {
	Name            string   `json:"name"`
	Path            string   `json:"path"`
	Kind            NodeKind `json:"kind"`
	DeclarationLine int      `json:"declarationLine"`
	NodeID          string   `json:"nodeId"`
}

// AncestorChain lists the collectors from the outermost non-root collector
// down to and including the test item itself.
type AncestorChain []Collector

// TestNode is one entry of the hierarchical test tree.
//
// Identity for tree placement is the name within the parent's children,
// NodeID is only guaranteed unique for Function nodes.
type TestNode struct {
	Name            string
	Path            string
	Kind            NodeKind
	ParentKind      NodeKind // empty for roots
	ParentName      string   // empty for roots
	DeclarationLine int
	NodeID          string
}

// Collector returns the chain element describing n.
func (n TestNode) Collector() Collector {
	return Collector{
		Name:            n.Name,
		Path:            n.Path,
		Kind:            n.Kind,
		DeclarationLine: n.DeclarationLine,
		NodeID:          n.NodeID,
	}
}

// NodeSnapshot is the nested wire form of a TestNode.
type NodeSnapshot struct {
	Name            string         `json:"name"`
	Path            string         `json:"path"`
	Kind            NodeKind       `json:"kind"`
	ParentKind      NodeKind       `json:"parentKind,omitempty"`
	ParentName      string         `json:"parentName,omitempty"`
	DeclarationLine int            `json:"declarationLine"`
	NodeID          string         `json:"nodeId"`
	Children        []NodeSnapshot `json:"children"`
}

// Node returns the node fields of the snapshot without its children.
func (s NodeSnapshot) Node() TestNode {
	return TestNode{
		Name:            s.Name,
		Path:            s.Path,
		Kind:            s.Kind,
		ParentKind:      s.ParentKind,
		ParentName:      s.ParentName,
		DeclarationLine: s.DeclarationLine,
		NodeID:          s.NodeID,
	}
}

// TreeMeta carries aggregate information about a collected tree.
type TreeMeta struct {
	Total int `json:"total"`
}

// TreeSnapshot is the payload of a TestsCollected event. Roots are ordered by
// first appearance and uniquely named, so the list doubles as the
// root name to node mapping.
type TreeSnapshot struct {
	Roots []NodeSnapshot `json:"roots"`
	Meta  TreeMeta       `json:"meta"`
}

// EventType implements Payload.
func (TreeSnapshot) EventType() EventType { return EventTestsCollected }
