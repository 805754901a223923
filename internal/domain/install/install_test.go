package install

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFromExitStatus verifies that only zero is classified as success.
func TestFromExitStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Success, FromExitStatus(0))

	for _, status := range []int{1, 2, 127, 255, 256, -1} {
		require.Equal(t, Error, FromExitStatus(status), status)
	}
}

// TestResult_ExitCode checks the mapping to process exit statuses.
func TestResult_ExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Success.ExitCode())
	require.Equal(t, 1, Error.ExitCode())
	require.Equal(t, "INSTALL_ERROR", Error.String())
}

// TestCommand ensures the upgrader command line keeps its historical layout.
func TestCommand(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"/sbin/system-image-upgrader /cache/recovery/ubuntu_command &> /cache/ubuntu_updater.log",
		Command("/sbin/system-image-upgrader", "/cache/recovery/ubuntu_command", "/cache/ubuntu_updater.log"),
	)
}
