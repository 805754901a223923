package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-ps"
)

// commLen is the longest executable name the Linux kernel reports in
// /proc/<pid>/stat; longer names are cut to this length.
const commLen = 15

// ProcessFinder reports whether a process with the given executable name is alive.
type ProcessFinder interface {
	IsRunning(name string) (bool, error)
}

// Processes looks processes up in the system process table.
type Processes struct {
	// list and argv0 are swapped in tests.
	list  func() ([]ps.Process, error)
	argv0 func(pid int) (string, error)
}

// NewProcesses returns a ProcessFinder backed by the operating system.
func NewProcesses() *Processes {
	return &Processes{
		list:  ps.Processes,
		argv0: procArgv0,
	}
}

// IsRunning reports whether another process runs the named executable.
// Only the base name is compared, the current process is ignored.
func (p *Processes) IsRunning(name string) (bool, error) {
	processList, err := p.list()
	if err != nil {
		return false, err
	}

	name = filepath.Base(name)
	truncated := name[:min(len(name), commLen)]
	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		switch executable := process.Executable(); {
		case executable == name:
			return true, nil
		case len(name) > commLen && executable == truncated:
			if p.sameCommandLine(process.Pid(), name) {
				return true, nil
			}
		}
	}

	return false, nil
}

// sameCommandLine confirms a truncated name match with the full argv[0].
// Without a readable command line the truncated match stands.
func (p *Processes) sameCommandLine(pid int, name string) bool {
	if p.argv0 == nil {
		return true
	}

	argv0, err := p.argv0(pid)
	if err != nil || argv0 == "" {
		return true
	}

	return filepath.Base(argv0) == name
}

// procArgv0 reads the first command line argument from /proc.
func procArgv0(pid int) (string, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return "", err
	}

	argv0, _, _ := bytes.Cut(data, []byte{0})

	return string(argv0), nil
}
