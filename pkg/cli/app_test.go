package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandTree(t *testing.T) {
	root := New()
	require.Equal(t, "lintoctl", root.Name)

	names := make([]string, 0, len(root.Commands))
	for _, cmd := range root.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, names,
		[]string{"profile", "render", "deploy", "redeploy", "destroy", "status", "version"})
}

func TestProfileSubcommands(t *testing.T) {
	cmd := profileCmd()
	names := make([]string, 0, len(cmd.Commands))
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
	}
	assert.ElementsMatch(t, names, []string{"list", "show", "delete", "copy"})
}

func TestProfileListTable(t *testing.T) {
	list := &profileList{}
	assert.Empty(t, list.Rows())
	assert.Len(t, list.Headers(), 6)
}
