package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/chrome"
	"github.com/tomyan/bopbot/internal/chrome/launcher"
	"github.com/tomyan/bopbot/internal/logging"
	"github.com/tomyan/bopbot/internal/stealth"
)

// ErrNotLaunched is returned by Goto before Launch has succeeded.
var ErrNotLaunched = errors.New("driver not launched")

// Process is the browser lifecycle the driver needs. *launcher.Supervisor
// implements it.
type Process interface {
	Launch(ctx context.Context) (*chrome.Client, error)
	Shutdown(ctx context.Context) error
}

// DriverOptions configures NewDriver.
type DriverOptions struct {
	Session    Config
	Supervisor launcher.SupervisorOptions
	Scripts    *stealth.ScriptCache
	Logger     *zap.Logger
	// Process replaces the supervisor built from the launch config.
	Process Process
	// Browser adapts the launched client. Defaults to FromClient.
	Browser func(*chrome.Client) Browser
}

// Driver is the top-level handle: launch a browser, go to pages, close it.
type Driver struct {
	process Process
	browser func(*chrome.Client) Browser
	scripts *stealth.ScriptCache
	cfg     Config
	logger  *zap.Logger

	session *PageSession
}

// NewDriver returns a driver for cfg. The session viewport defaults to the
// launch window geometry.
func NewDriver(cfg *launcher.LaunchConfig, opts DriverOptions) *Driver {
	logger := logging.Nop(opts.Logger)

	process := opts.Process
	if process == nil {
		supOpts := opts.Supervisor
		if supOpts.Logger == nil {
			supOpts.Logger = logger
		}
		process = launcher.NewSupervisor(cfg, supOpts)
	}

	sessCfg := opts.Session
	if sessCfg.Viewport == (chrome.Viewport{}) && cfg != nil {
		sessCfg.Viewport = cfg.Window().Viewport()
	}

	browser := opts.Browser
	if browser == nil {
		browser = FromClient
	}

	scripts := opts.Scripts
	if scripts == nil {
		scripts = stealth.NewScriptCache(nil, "")
	}

	return &Driver{
		process: process,
		browser: browser,
		scripts: scripts,
		cfg:     sessCfg,
		logger:  logger,
	}
}

// Launch starts the browser and opens the session page.
func (d *Driver) Launch(ctx context.Context) error {
	client, err := d.process.Launch(ctx)
	if err != nil {
		return err
	}

	sess, err := New(ctx, d.browser(client), d.scripts, d.cfg, d.logger)
	if err != nil {
		if shutdownErr := d.process.Shutdown(ctx); shutdownErr != nil {
			d.logger.Warn("shutdown after session failure", zap.Error(shutdownErr))
		}
		return fmt.Errorf("starting session: %w", err)
	}

	d.session = sess
	return nil
}

// Goto navigates the session page to url.
func (d *Driver) Goto(ctx context.Context, url string) error {
	if d.session == nil {
		return ErrNotLaunched
	}
	return d.session.Navigate(ctx, url, false)
}

// Session returns the live session, or nil before Launch.
func (d *Driver) Session() *PageSession {
	return d.session
}

// Close shuts the browser down. It is safe to call more than once.
func (d *Driver) Close(ctx context.Context) error {
	d.session = nil
	return d.process.Shutdown(ctx)
}
