package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdHasAllSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"pack", "get", "match", "coalesce", "version"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, "subcommand %s should exist", name)
		assert.Equal(t, name, found.Name())
	}
}
