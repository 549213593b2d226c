package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "boards", "task", "watch"} {
		assert.True(t, names[want], "command %q should be registered", want)
	}
}

func TestTaskAddFlags(t *testing.T) {
	for _, flag := range []string{"project", "title", "col", "row", "status", "due"} {
		require.NotNil(t, taskAddCmd.Flags().Lookup(flag), "task add should have --%s", flag)
	}
}

func TestWatchFlags(t *testing.T) {
	for _, flag := range []string{"project", "log-file", "only", "entity", "presence"} {
		require.NotNil(t, watchCmd.Flags().Lookup(flag), "watch should have --%s", flag)
	}
}

func TestVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-08-30")
	assert.Contains(t, rootCmd.Version, "1.2.3")
	assert.Contains(t, rootCmd.Version, "abc123")
}
