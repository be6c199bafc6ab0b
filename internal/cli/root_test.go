package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/member"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "trustlog", cmd.Use)
	assert.Contains(t, cmd.Long, "TRUSTLOG_DB")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"append", "validate", "replay", "member", "can", "test", "watch"}

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

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay", "--format", "yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestRootLoadsConfigFromEnv(t *testing.T) {
	dbPath := t.TempDir() + "/env.db"
	t.Setenv("TRUSTLOG_DB", dbPath)
	t.Setenv("TRUSTLOG_VERIFICATIONS_REQUIRED_TO_FLAG", "2")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay", "--format", "json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"status": "ok"`)
	assert.FileExists(t, dbPath)
}

func TestRootConfigErrorIsCommandError(t *testing.T) {
	t.Setenv("TRUSTLOG_VERIFICATIONS_REQUIRED_TO_FLAG", "0")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay", "--db", t.TempDir() + "/x.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestThresholdsFallBackToDefaults(t *testing.T) {
	opts := &RootOptions{}
	assert.Equal(t, member.DefaultThresholds(), opts.thresholds())

	opts.Config.VerificationsRequiredToVerify = 2
	opts.Config.VerificationsRequiredToFlag = 3
	assert.Equal(t, member.Thresholds{ToVerify: 2, ToFlag: 3}, opts.thresholds())
}

func TestOpenStoreRequiresDatabase(t *testing.T) {
	opts := &RootOptions{}
	_, err := opts.openStore()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
