package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/store"
)

// newTestOptions returns options pointing at a fresh database path.
func newTestOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:   format,
		Database: filepath.Join(t.TempDir(), "test.db"),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// executeWithInput is execute with stdin.
func executeWithInput(t *testing.T, cmd *cobra.Command, input string, args ...string) (string, error) {
	t.Helper()
	cmd.SetIn(strings.NewReader(input))
	return execute(t, cmd, args...)
}

// seedStore appends ops to the database at path.
func seedStore(t *testing.T, path string, ops []op.Operation) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.AppendBatch(t.Context(), ops)
	require.NoError(t, err)
}

// storedOps reads back the whole log at path.
func storedOps(t *testing.T, path string) []op.Operation {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	ops, err := st.ReadAll(t.Context())
	require.NoError(t, err)
	return ops
}

// writeFile writes content to a file in a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
