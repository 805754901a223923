package shell

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSystem_Run_ExitStatus checks that exit statuses are reported verbatim.
func TestSystem_Run_ExitStatus(t *testing.T) {
	t.Parallel()

	runner := NewSystem("/bin/sh")

	status, err := runner.Run(context.Background(), "exit 0")
	require.NoError(t, err)
	require.Equal(t, 0, status)

	status, err = runner.Run(context.Background(), "exit 42")
	require.NoError(t, err)
	require.Equal(t, 42, status)
}

// TestSystem_Run_Redirect ensures redirections in the command line are honoured.
func TestSystem_Run_Redirect(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.log")

	status, err := NewSystem("/bin/sh").Run(context.Background(), "echo upgraded > "+out)
	require.NoError(t, err)
	require.Equal(t, 0, status)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "upgraded\n", string(data))
}

// TestSystem_Run_MissingShell reports a start failure as an error.
func TestSystem_Run_MissingShell(t *testing.T) {
	t.Parallel()

	status, err := NewSystem(filepath.Join(t.TempDir(), "nosh")).Run(context.Background(), "true")
	require.Error(t, err)
	require.Equal(t, FailedToStart, status)
}
