package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"serve"},
		{"groups", "create"},
		{"groups", "list"},
		{"groups", "delete"},
		{"users", "create"},
		{"posts", "delete"},
		{"cache", "clear"},
		{"search", "reindex"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name(), path)
	}
}
