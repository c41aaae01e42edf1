package domain

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SearchHit is one node matching a tree search.
type SearchHit struct {
	Index    NodeIndex
	Name     string
	Distance int
}

// SearchTree fuzzy matches query against every node name, ignoring case. Hits
// are ordered by distance, ties in tree order.
func SearchTree(tree *TestTree, query string) []SearchHit {
	if query == "" || tree == nil {
		return nil
	}

	var (
		indices []NodeIndex
		names   []string
	)

	tree.Walk(func(idx NodeIndex) bool {
		indices = append(indices, idx)
		names = append(names, tree.Node(idx).Name)

		return true
	})

	ranks := fuzzy.RankFindFold(query, names)
	sort.Stable(ranks)

	hits := make([]SearchHit, 0, ranks.Len())
	for _, rank := range ranks {
		hits = append(hits, SearchHit{
			Index:    indices[rank.OriginalIndex],
			Name:     rank.Target,
			Distance: rank.Distance,
		})
	}

	return hits
}
