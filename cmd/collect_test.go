package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orisa.dev/pkg/orisa/internal/domain"
	m "orisa.dev/pkg/orisa/internal/model"
)

func TestCollectCmd(t *testing.T) {
	t.Run("prints the reported tree", func(t *testing.T) {
		isolateConfig(t)

		tree := domain.BuildTree([]m.AncestorChain{
			domain.ChainFromNodeID(idOne),
			domain.ChainFromNodeID(idTwo),
		})

		useRunner(t, &scriptedRunner{collect: func(r *scriptedRunner) error {
			return r.send(tree.Snapshot())
		}})

		out, err := execute(t, newCollectCmd(), "collect", "--port", "0")
		require.NoError(t, err)

		assert.Equal(t, "pkg\n"+
			"└── test_a.py\n"+
			"    └── TestX\n"+
			"        ├── test_one\n"+
			"        └── test_two\n"+
			"\n2 test(s) collected\n", out)
	})

	t.Run("collection failure", func(t *testing.T) {
		isolateConfig(t)

		useRunner(t, &scriptedRunner{collect: func(*scriptedRunner) error {
			return errors.New("collection failed: exit status 4")
		}})

		_, err := execute(t, newCollectCmd(), "collect", "--port", "0")
		require.EqualError(t, err, "collection failed: exit status 4")
	})

	t.Run("no tree reported", func(t *testing.T) {
		isolateConfig(t)
		setConfig(t, runnerReportTimeoutKey, 100*time.Millisecond)

		useRunner(t, &scriptedRunner{})

		_, err := execute(t, newCollectCmd(), "collect", "--port", "0")
		require.ErrorContains(t, err, "no TestsCollected event received")
	})
}
