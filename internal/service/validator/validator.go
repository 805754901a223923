package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ubports/ubupdater/internal/logger"
	"github.com/ubports/ubupdater/internal/sparse"
)

// StdinArgument selects standard input as the image source.
const StdinArgument = "-"

// Exit statuses, one per failure class.
const (
	ExitOK       = 0
	ExitArgument = 1
	ExitOpen     = 2
	ExitImport   = 3
)

// Image is an imported sparse image handle.
type Image interface {
	Destroy()
}

// Importer parses a sparse stream and returns a handle to release.
type Importer func(r io.Reader, opts sparse.ImportOptions) (Image, error)

// ImportSparse is the default Importer.
func ImportSparse(r io.Reader, opts sparse.ImportOptions) (Image, error) {
	f, err := sparse.Import(r, opts)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// ErrUsage is wrapped by ArgumentError.
var ErrUsage = errors.New("Usage: simgtest <sparse_image_file>") //nolint:staticcheck,revive // Printed verbatim.

// ArgumentError reports a wrong number of arguments.
type ArgumentError struct {
	Count int
}

func (e *ArgumentError) Error() string {
	return ErrUsage.Error()
}

func (e *ArgumentError) Unwrap() error {
	return ErrUsage
}

// OpenError reports an input file that cannot be opened for reading.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return "Cannot open input file " + e.Path
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// ImportError reports a stream the importer could not parse.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return "Failed to read sparse file"
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by Run to a process exit status.
func ExitCode(err error) int {
	var (
		argErr    *ArgumentError
		openErr   *OpenError
		importErr *ImportError
	)

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &argErr):
		return ExitArgument
	case errors.As(err, &openErr):
		return ExitOpen
	case errors.As(err, &importErr):
		return ExitImport
	default:
		return ExitArgument
	}
}

// Options are inputs accepted by the validator entry point.
type Options struct {
	// Args are the positional arguments; exactly one is expected.
	Args []string
	// Stdin is read when the argument is StdinArgument. Defaults to os.Stdin.
	Stdin io.Reader
	// Import parses the stream. Defaults to ImportSparse.
	Import Importer
}

// Run imports the image named by the single argument and releases it.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "simgtest")

	if len(opts.Args) != 1 {
		return &ArgumentError{Count: len(opts.Args)}
	}

	importImage := opts.Import
	if importImage == nil {
		importImage = ImportSparse
	}

	source := opts.Args[0]
	ctx = logger.WithKV(ctx, "source", source)

	var input io.Reader

	if source == StdinArgument {
		input = opts.Stdin
		if input == nil {
			input = os.Stdin
		}
	} else {
		f, err := os.Open(filepath.Clean(source))
		if err != nil {
			return &OpenError{Path: source, Err: err}
		}

		defer func() {
			_ = f.Close()
		}()

		input = f
	}

	logger.Debug(ctx, "Importing sparse image")

	image, err := importImage(input, sparse.ImportOptions{VerifyCRC: true, CreateCopy: false})
	if err != nil {
		logger.DebugKV(ctx, "Import failed", "error", err)
		return &ImportError{Err: err}
	}

	if image == nil {
		return &ImportError{Err: fmt.Errorf("importer returned no image for %s", source)}
	}

	image.Destroy()

	logger.Debug(ctx, "Sparse image is valid")

	return nil
}
