package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ubports/ubupdater/internal/service/validator"
	"github.com/ubports/ubupdater/internal/sparse"
)

// oneBlockImage is a valid sparse image with a single don't-care chunk.
func oneBlockImage() []byte {
	var out bytes.Buffer

	_ = binary.Write(&out, binary.LittleEndian, sparse.Header{
		Magic:           sparse.Magic,
		MajorVersion:    sparse.MajorVersion,
		FileHeaderSize:  28,
		ChunkHeaderSize: 12,
		BlockSize:       4096,
		TotalBlocks:     1,
		TotalChunks:     1,
	})
	_ = binary.Write(&out, binary.LittleEndian, []uint32{uint32(sparse.ChunkDontCare), 1, 12})

	return out.Bytes()
}

func TestRun_ExitStatuses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "system.img")
	bad := filepath.Join(dir, "raw.img")
	missing := filepath.Join(dir, "missing.img")

	require.NoError(t, os.WriteFile(good, oneBlockImage(), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("raw ext4 image, not sparse"), 0o600))

	cases := map[string]struct {
		args   []string
		stdin  []byte
		status int
		stderr string
	}{
		"valid file":     {args: []string{good}, status: validator.ExitOK},
		"valid stdin":    {args: []string{"-"}, stdin: oneBlockImage(), status: validator.ExitOK},
		"no arguments":   {args: nil, status: validator.ExitArgument, stderr: "Usage: simgtest <sparse_image_file>\n"},
		"two arguments":  {args: []string{good, good}, status: validator.ExitArgument, stderr: "Usage: simgtest <sparse_image_file>\n"},
		"missing file":   {args: []string{missing}, status: validator.ExitOpen, stderr: "Cannot open input file " + missing + "\n"},
		"not sparse":     {args: []string{bad}, status: validator.ExitImport, stderr: "Failed to read sparse file\n"},
		"empty stdin":    {args: []string{"-"}, status: validator.ExitImport, stderr: "Failed to read sparse file\n"},
		"bad log level":  {args: []string{"--log-level", "loud", good}, status: validator.ExitArgument, stderr: "unknown log level \"loud\"\n"},
		"unknown option": {args: []string{"--frobnicate", good}, status: validator.ExitArgument},
	}

	for name, tc := range cases {
		var stdout, stderr bytes.Buffer

		status := run(tc.args, bytes.NewReader(tc.stdin), &stdout, &stderr)
		require.Equal(t, tc.status, status, name)

		if tc.stderr != "" {
			require.Equal(t, tc.stderr, stderr.String(), name)
		}

		if tc.status == validator.ExitOK {
			require.Empty(t, stderr.String(), name)
		}
	}
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	require.Zero(t, run([]string{"--version"}, strings.NewReader(""), &stdout, &stderr))
	require.Contains(t, stdout.String(), "simgtest")
}
