package domain

import m "orisa.dev/pkg/orisa/internal/model"

// InvocationTarget returns the runner argument that selects node:
// "path::Class::function" for a method, "path::name" for any other class or
// function, and the bare path otherwise.
func InvocationTarget(node m.TestNode) string {
	switch {
	case node.Kind == m.KindFunction && node.ParentKind == m.KindClass:
		return node.Path + nodeIDSeparator + node.ParentName + nodeIDSeparator + node.Name
	case node.Kind == m.KindClass || node.Kind == m.KindFunction:
		return node.Path + nodeIDSeparator + node.Name
	default:
		return node.Path
	}
}
