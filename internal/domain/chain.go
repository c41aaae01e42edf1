package domain

import (
	"path"
	"strings"

	m "orisa.dev/pkg/orisa/internal/model"
)

const nodeIDSeparator = "::"

// ChainFromNodeID derives the ancestor chain of a runner node id such as
// "tests/unit/test_a.py::TestX::test_one": one Directory per path segment,
// a Module for the file, a Class per inner part and a Function for the last
// part. It returns nil for an empty id.
func ChainFromNodeID(nodeID string) m.AncestorChain {
	if nodeID == "" {
		return nil
	}

	parts := strings.Split(nodeID, nodeIDSeparator)
	file := path.Clean(strings.ReplaceAll(parts[0], "\\", "/"))

	var chain m.AncestorChain

	if dir := path.Dir(file); dir != "." && dir != "/" {
		var cumulative string
		if path.IsAbs(dir) {
			cumulative = "/"
		}

		for _, segment := range strings.Split(dir, "/") {
			if segment == "" {
				continue
			}

			cumulative = path.Join(cumulative, segment)
			chain = append(chain, m.Collector{
				Name:   segment,
				Path:   cumulative,
				Kind:   m.KindDirectory,
				NodeID: cumulative,
			})
		}
	}

	chain = append(chain, m.Collector{
		Name:   path.Base(file),
		Path:   file,
		Kind:   m.KindModule,
		NodeID: file,
	})

	id := file

	for i, part := range parts[1:] {
		id += nodeIDSeparator + part

		kind := m.KindClass
		if i == len(parts)-2 {
			kind = m.KindFunction
		}

		chain = append(chain, m.Collector{
			Name:   part,
			Path:   file,
			Kind:   kind,
			NodeID: id,
		})
	}

	return chain
}
