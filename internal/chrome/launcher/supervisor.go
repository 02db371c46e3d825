package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/chrome"
)

// State is the supervisor lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultHandshakeTimeout bounds the wait for the DevTools endpoint.
const DefaultHandshakeTimeout = 30 * time.Second

var endpointPattern = regexp.MustCompile(`DevTools listening on (ws://\S+)`)

// ProcessHandle describes the running browser.
type ProcessHandle struct {
	PID      int
	Endpoint string
	// DisplayServer is set when the browser runs on a virtual display.
	DisplayServer *VirtualDisplay
}

// SupervisorOptions tunes a Supervisor.
type SupervisorOptions struct {
	// Runner executes the cleanup commands (pkill, pgrep).
	Runner CommandRunner
	// HandshakeTimeout defaults to DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
	// Display overrides the virtual display used in HeadlessVirtualDisplay mode.
	Display *VirtualDisplay
	Logger  *zap.Logger
}

// Supervisor owns one browser process from spawn to teardown. Launch and
// Shutdown must not be called concurrently.
type Supervisor struct {
	cfg              *LaunchConfig
	runner           CommandRunner
	display          *VirtualDisplay
	handshakeTimeout time.Duration
	logger           *zap.Logger

	state  State
	cmd    *exec.Cmd
	exited chan struct{}
	client *chrome.Client
	handle *ProcessHandle
}

// NewSupervisor returns an idle supervisor for cfg.
func NewSupervisor(cfg *LaunchConfig, opts SupervisorOptions) *Supervisor {
	runner := opts.Runner
	if runner == nil {
		runner = DefaultCommandRunner{}
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Supervisor{
		cfg:              cfg,
		runner:           runner,
		handshakeTimeout: timeout,
		logger:           logger.Named("supervisor"),
	}
	if cfg.VirtualDisplay() {
		s.display = opts.Display
		if s.display == nil {
			s.display = NewVirtualDisplay(runner)
		}
	}
	return s
}

// State returns the lifecycle state.
func (s *Supervisor) State() State {
	return s.state
}

// Handle returns the running process, or nil when not running.
func (s *Supervisor) Handle() *ProcessHandle {
	if s.state != StateRunning {
		return nil
	}
	return s.handle
}

// Client returns the browser connection, or nil when not running.
func (s *Supervisor) Client() *chrome.Client {
	if s.state != StateRunning {
		return nil
	}
	return s.client
}

// Command returns the full command line for the configured headless mode.
func (s *Supervisor) Command() []string {
	return s.command(s.cfg.LaunchOptions())
}

func (s *Supervisor) command(opts LaunchOptions) []string {
	var argv []string
	switch s.cfg.Headless() {
	case HeadlessVirtualDisplay:
		argv = s.display.Command(opts.ExecutablePath)
	case HeadlessNative:
		argv = []string{opts.ExecutablePath, "--headless", "--disable-gpu", "--hide-scrollbars", "--mute-audio"}
	default:
		argv = []string{opts.ExecutablePath}
	}
	return append(argv, opts.CommandArgs()...)
}

// Launch spawns the browser, waits for its DevTools endpoint and connects. On
// any failure the process is killed, the supervisor returns to StateIdle and a
// *LaunchError is returned.
func (s *Supervisor) Launch(ctx context.Context) (*chrome.Client, error) {
	if s.state != StateIdle {
		return nil, &LaunchError{Stage: StageState, Err: fmt.Errorf("supervisor is %s", s.state)}
	}
	s.state = StateLaunching

	opts := s.cfg.LaunchOptions()
	argv := s.command(opts)
	s.logger.Info("launching browser",
		zap.String("executable", opts.ExecutablePath),
		zap.String("headless", s.cfg.Headless().String()),
		zap.String("profile", opts.UserDataDir))
	s.logger.Debug("browser command", zap.Strings("argv", argv))

	output, wr, err := os.Pipe()
	if err != nil {
		s.state = StateIdle
		return nil, &LaunchError{Stage: StageSpawn, Err: err}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = wr
	cmd.Stderr = wr
	if err := cmd.Start(); err != nil {
		output.Close()
		wr.Close()
		s.state = StateIdle
		return nil, &LaunchError{Stage: StageSpawn, Err: err}
	}
	// The child holds its own copy of the write end.
	wr.Close()

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		s.logger.Debug("browser process exited", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		close(exited)
	}()
	s.cmd = cmd
	s.exited = exited

	endpoint, err := s.awaitEndpoint(ctx, output, exited)
	if err != nil {
		s.abort()
		return nil, &LaunchError{Stage: StageHandshake, Err: err}
	}

	client, err := chrome.ConnectURL(ctx, endpoint, chrome.ConnectOptions{SlowMotion: opts.SlowMotion})
	if err != nil {
		s.abort()
		return nil, &LaunchError{Stage: StageConnect, Err: err}
	}
	if opts.IgnoreHTTPSErrors {
		if err := client.SetIgnoreCertificateErrors(ctx, true); err != nil {
			client.Close()
			s.abort()
			return nil, &LaunchError{Stage: StageConnect, Err: err}
		}
	}

	s.client = client
	s.handle = &ProcessHandle{
		PID:           cmd.Process.Pid,
		Endpoint:      endpoint,
		DisplayServer: s.display,
	}
	s.state = StateRunning
	s.logger.Info("browser running", zap.Int("pid", s.handle.PID), zap.String("endpoint", endpoint))

	return client, nil
}

// awaitEndpoint scans the merged process output for the DevTools banner. The
// output keeps draining to the debug log after the banner is found.
func (s *Supervisor) awaitEndpoint(ctx context.Context, output io.ReadCloser, exited <-chan struct{}) (string, error) {
	found := make(chan string, 1)
	go func() {
		defer output.Close()
		announced := false
		scanner := bufio.NewScanner(output)
		for scanner.Scan() {
			line := scanner.Text()
			if !announced {
				if m := endpointPattern.FindStringSubmatch(line); m != nil {
					announced = true
					found <- m[1]
					continue
				}
			}
			s.logger.Debug("browser output", zap.String("line", line))
		}
	}()

	timer := time.NewTimer(s.handshakeTimeout)
	defer timer.Stop()

	select {
	case endpoint := <-found:
		return endpoint, nil
	case <-exited:
		// The banner may have been read just before the exit was observed.
		select {
		case endpoint := <-found:
			return endpoint, nil
		default:
		}
		return "", ErrProcessExited
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", ErrHandshakeTimeout, s.handshakeTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// abort tears down a half-launched process and returns to StateIdle.
func (s *Supervisor) abort() {
	s.killProcess()
	if s.display != nil {
		if _, err := s.display.Reclaim(); err != nil {
			s.logger.Warn("reclaiming virtual display", zap.Error(err))
		}
	}
	s.cmd = nil
	s.exited = nil
	s.state = StateIdle
}

// killProcess kills and reaps the browser once. It reports whether the
// process was still running.
func (s *Supervisor) killProcess() bool {
	if s.cmd == nil {
		return false
	}
	running := true
	select {
	case <-s.exited:
		running = false
	default:
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("killing browser", zap.Error(err))
		}
		select {
		case <-s.exited:
		case <-time.After(5 * time.Second):
			s.logger.Warn("browser did not exit after kill", zap.Int("pid", s.cmd.Process.Pid))
		}
	}
	s.cmd = nil
	return running
}

// Shutdown closes the connection, kills the browser and any orphaned
// children, and reclaims the virtual display. Calling it on an idle or closed
// supervisor does nothing.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if s.state != StateRunning {
		return nil
	}
	s.state = StateShuttingDown
	s.logger.Info("shutting down browser", zap.Int("pid", s.handle.PID))

	var errs []error
	if s.client != nil {
		if err := s.client.CloseBrowser(ctx); err != nil {
			s.logger.Debug("closing browser over protocol", zap.Error(err))
		}
		s.client.Close()
		s.client = nil
	}

	s.killProcess()

	// Renderer and GPU children can outlive the main process.
	s.runner.Run("pkill", "-9", "-f", s.cfg.ProfilePath())

	if s.display != nil {
		found, err := s.display.Reclaim()
		if err != nil {
			errs = append(errs, err)
		}
		s.logger.Debug("virtual display reclaimed", zap.Bool("found", found))
	}

	s.handle = nil
	s.exited = nil
	s.state = StateClosed

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutting down browser: %w", err)
	}
	return nil
}
