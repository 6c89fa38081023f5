package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandListCollectsInOrder(t *testing.T) {
	var c commandList
	require.NoError(t, c.Set("set beep"))
	require.NoError(t, c.Set("unset beep"))
	assert.Equal(t, commandList{"set beep", "unset beep"}, c)
	assert.Equal(t, "set beep; unset beep", c.String())
}

func TestRunShell(t *testing.T) {
	out, err := runShell("echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}
