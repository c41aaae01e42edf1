package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTree(t *testing.T) {
	tree := BuildTree(chains(idOne, idTwo, idFree))

	t.Run("case insensitive fuzzy match", func(t *testing.T) {
		hits := SearchTree(tree, "TONE")
		require.NotEmpty(t, hits)
		assert.Equal(t, "test_one", hits[0].Name)
		assert.Equal(t, tree.FindByNodeID(idOne)[0], hits[0].Index)
	})

	t.Run("closest first", func(t *testing.T) {
		hits := SearchTree(tree, "test_two")
		require.NotEmpty(t, hits)
		assert.Equal(t, "test_two", hits[0].Name)
		assert.Zero(t, hits[0].Distance)
	})

	t.Run("ranked by distance then tree order", func(t *testing.T) {
		hits := SearchTree(tree, "test_")

		var found []string
		for _, hit := range hits {
			found = append(found, hit.Name)
		}

		assert.Equal(t, []string{"test_one", "test_two", "test_a.py", "test_b.py", "test_free"}, found)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, SearchTree(tree, "zzz"))
		assert.Nil(t, SearchTree(tree, ""))
		assert.Nil(t, SearchTree(nil, "test"))
	})
}
