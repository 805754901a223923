package stager

import (
	"bytes"
	"context"
	"crypto"
	_ "crypto/sha512" // Registers crypto.SHA512 for checksum verification.
	"encoding/base64"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/ubports/ubupdater/internal/config"
	"github.com/ubports/ubupdater/internal/logger"
)

const (
	// StdinSource reads the command file from standard input.
	StdinSource = "-"

	// DefaultFileMode is applied to the staged command file.
	DefaultFileMode os.FileMode = 0o644

	// DefaultDirMode is applied to a cache directory created on demand.
	DefaultDirMode os.FileMode = 0o755

	// ChecksumFunction is the hash behind Options.Checksum.
	ChecksumFunction = crypto.SHA512
)

var (
	errNoSource    = errors.New("command file source is required")
	errBadChecksum = errors.New("checksum is not valid base64")
	errMismatch    = errors.New("checksum mismatch")
)

// Options are inputs accepted by the stage command.
type Options struct {
	// ConfigPath names the configuration file; empty means built-in defaults.
	ConfigPath string
	// Source is the file to stage, or StdinSource.
	Source string
	// Checksum is an optional base64 SHA-512 digest of the source.
	Checksum string
	// Stdin is read when Source is StdinSource. Defaults to os.Stdin.
	Stdin io.Reader
}

// Run stages the source as the configured command file.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stager")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	return Stage(ctx, cfg.CommandFile, opts)
}

// Stage replaces target with the contents of opts.Source.
// On any error the existing target is left as it was.
func Stage(ctx context.Context, target string, opts *Options) error {
	if opts.Source == "" {
		return errNoSource
	}

	var checksum []byte

	if opts.Checksum != "" {
		decoded, err := base64.StdEncoding.DecodeString(opts.Checksum)
		if err != nil {
			return fmt.Errorf("%w: %w", errBadChecksum, err)
		}

		checksum = decoded
	}

	data, err := readSource(opts)
	if err != nil {
		return err
	}

	if err = verifyChecksum(data, checksum); err != nil {
		return err
	}

	target = filepath.Clean(target)

	if err = os.MkdirAll(filepath.Dir(target), DefaultDirMode); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}

	// go-update swaps the target out, so it has to exist first.
	var created bool

	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var f *os.File

		f, err = os.OpenFile(target, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if err != nil {
			return err
		}

		_ = f.Close()
		created = true
	}

	logger.InfoKV(ctx, "Staging command file", "source", opts.Source, "target", target, "bytes", len(data))

	options := &goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       ChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), *options); err != nil {
		if created {
			_ = os.Remove(target)
		}

		return fmt.Errorf("failed to stage %s: %w", target, err)
	}

	for _, oldFileName := range []string{
		target + ".old",
		filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old"),
	} {
		if _, err = os.Stat(oldFileName); err == nil {
			_ = os.Remove(oldFileName)
		}
	}

	return nil
}

// verifyChecksum compares data with an optional SHA-512 digest.
func verifyChecksum(data, checksum []byte) error {
	if checksum == nil {
		return nil
	}

	hash := ChecksumFunction.New()
	_, _ = hash.Write(data)

	if subtle.ConstantTimeCompare(hash.Sum(nil), checksum) != 1 {
		return errMismatch
	}

	return nil
}

func readSource(opts *Options) ([]byte, error) {
	if opts.Source == StdinSource {
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}

		return io.ReadAll(stdin)
	}

	return os.ReadFile(filepath.Clean(opts.Source))
}
