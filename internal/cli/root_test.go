package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ftrac", cmd.Use)
	assert.Contains(t, cmd.Long, "session")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"import", "aggregate", "group", "throughput", "cdf",
		"summary", "procs", "runtime", "sessions", "syscalls", "check",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue, "empty means use the configured database")
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	require.NotNil(t, importCmd.Flags().Lookup("metrics-file"))
}

func TestCDFCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	cdfCmd, _, err := cmd.Find([]string{"cdf"})
	require.NoError(t, err)

	tableFlag := cdfCmd.Flags().Lookup("table")
	require.NotNil(t, tableFlag)
	assert.Equal(t, "proc", tableFlag.DefValue)

	for _, name := range []string{"column", "vthreshold", "rthreshold", "weight", "where"} {
		assert.NotNil(t, cdfCmd.Flags().Lookup(name), name)
	}
}

func TestThroughputCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	tpCmd, _, err := cmd.Find([]string{"throughput"})
	require.NoError(t, err)

	byFlag := tpCmd.Flags().Lookup("by")
	require.NotNil(t, byFlag)
	assert.Equal(t, "pid", byFlag.DefValue)

	whereFlag := tpCmd.Flags().Lookup("where")
	require.NotNil(t, whereFlag)
	assert.Equal(t, "w", whereFlag.Shorthand)
}

func TestParseWhere(t *testing.T) {
	attrs, err := parseWhere([]string{"sysc=read", "pid=42", "live=true", "cmdline=/bin/sh -c a=b", "pid=43"})
	require.NoError(t, err)

	assert.Equal(t, "read", attrs["sysc"])
	assert.Equal(t, int64(43), attrs["pid"], "last value wins")
	assert.Equal(t, true, attrs["live"])
	assert.Equal(t, "/bin/sh -c a=b", attrs["cmdline"])
}

func TestParseWhere_Invalid(t *testing.T) {
	for _, bad := range []string{"pid", "=5"} {
		_, err := parseWhere([]string{bad})
		assert.Error(t, err, bad)
	}

	attrs, err := parseWhere(nil)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}
