package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"submit", "batch", "state", "pending", "resume", "reprocess", "stats", "monitor", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "complaint-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSubmitCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "source", "no-process", "json"} {
		assert.NotNil(t, submitCmd.Flags().Lookup(name), "submit should have --%s flag", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "100", flag.DefValue)

	flag = batchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	assert.NotNil(t, batchCmd.Flags().Lookup("data-dir"))
	assert.NotNil(t, batchCmd.Flags().Lookup("source"))
}

func TestReprocessCommand_Flags(t *testing.T) {
	flag := reprocessCmd.Flags().Lookup("supersede-ticket")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestPendingCommand_Flags(t *testing.T) {
	flag := pendingCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
	assert.NotNil(t, pendingCmd.Flags().Lookup("status"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestMonitorCommand_Flags(t *testing.T) {
	flag := monitorCmd.Flags().Lookup("watch")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestApplyOverrides(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "x"}
		c.Flags().String("log-level", "", "")
		c.Flags().Bool("offline", false, "")
		return c
	}

	c := &config.Config{}
	c.Log.Level = "info"
	c.Anthropic.Offline = true
	applyOverrides(c, newCmd())
	assert.Equal(t, "info", c.Log.Level, "unset flags keep config values")
	assert.True(t, c.Anthropic.Offline)

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	require.NoError(t, cmd.Flags().Set("offline", "false"))
	applyOverrides(c, cmd)
	assert.Equal(t, "debug", c.Log.Level)
	assert.False(t, c.Anthropic.Offline)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
	flag := rootCmd.PersistentFlags().Lookup("offline")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
