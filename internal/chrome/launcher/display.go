package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner executes commands via os/exec.
type DefaultCommandRunner struct{}

// Run executes a command and returns its combined output.
func (d DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// VirtualDisplay wraps the browser in an Xvfb server and reclaims the server
// at shutdown. Reclaiming matches the server by process name, so it assumes no
// unrelated Xvfb instance is running on the host.
type VirtualDisplay struct {
	// Wrapper is the command prefix that starts the display and runs the browser on it.
	Wrapper []string
	// ProcessName is the display server's exact process name.
	ProcessName string
	// LockGlob matches the server's stale lock files.
	LockGlob string

	runner CommandRunner
}

// NewVirtualDisplay returns the xvfb-run based display.
func NewVirtualDisplay(runner CommandRunner) *VirtualDisplay {
	if runner == nil {
		runner = DefaultCommandRunner{}
	}
	return &VirtualDisplay{
		Wrapper:     []string{"xvfb-run", "--auto-servernum", "-e", "/dev/stdout"},
		ProcessName: "Xvfb",
		LockGlob:    "/tmp/.X*-lock",
		runner:      runner,
	}
}

// Command returns the wrapper followed by the executable.
func (d *VirtualDisplay) Command(executable string) []string {
	cmd := make([]string, 0, len(d.Wrapper)+1)
	cmd = append(cmd, d.Wrapper...)
	return append(cmd, executable)
}

// Reclaim kills the display server if it is still running and removes its
// lock files. It reports whether a server was found.
func (d *VirtualDisplay) Reclaim() (bool, error) {
	found := false
	if _, err := d.runner.Run("pgrep", "-x", d.ProcessName); err == nil {
		found = true
		// pkill exits non-zero when the server is already gone
		d.runner.Run("pkill", "-x", d.ProcessName)
	}

	locks, err := filepath.Glob(d.LockGlob)
	if err != nil {
		return found, fmt.Errorf("matching display locks: %w", err)
	}

	var errs []error
	for _, lock := range locks {
		if err := os.Remove(lock); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("removing display lock: %w", err))
		}
	}
	return found, errors.Join(errs...)
}
