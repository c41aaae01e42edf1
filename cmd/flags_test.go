package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "orisa.dev/pkg/orisa/internal/model"
)

func TestFlagsCmd(t *testing.T) {
	isolateConfig(t)

	out, err := execute(t, newFlagsCmd(), "flags")
	require.NoError(t, err)
	assert.Equal(t, "No flags configured\n", out)

	_, err = execute(t, newFlagsCmd(), "flags", "add", "-x")
	require.NoError(t, err)

	_, err = execute(t, newFlagsCmd(), "flags", "add", "--lf")
	require.NoError(t, err)

	out, err = execute(t, newFlagsCmd(), "flags", "toggle", "--lf")
	require.NoError(t, err)
	assert.Equal(t, "[x] -x\n[ ] --lf\n", out)

	flags, err := newFlagStore().Load()
	require.NoError(t, err)
	assert.Equal(t, []m.CLIFlag{{Value: "-x", Enabled: true}, {Value: "--lf", Enabled: false}}, flags)

	out, err = execute(t, newFlagsCmd(), "flags", "rm", "-x")
	require.NoError(t, err)
	assert.Equal(t, "[ ] --lf\n", out)

	_, err = execute(t, newFlagsCmd(), "flags", "rm", "-x")
	require.ErrorContains(t, err, `flag "-x" not found`)

	_, err = execute(t, newFlagsCmd(), "flags", "toggle", "--maxfail=1")
	require.ErrorContains(t, err, "not found")
}
