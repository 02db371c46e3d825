package launcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomyan/bopbot/internal/chrome"
	"github.com/tomyan/bopbot/internal/fsutil"
)

// HeadlessMode selects how the browser runs without a visible window.
type HeadlessMode int

const (
	// HeadlessNone runs a normal windowed browser.
	HeadlessNone HeadlessMode = iota
	// HeadlessNative uses the browser's own --headless mode.
	HeadlessNative
	// HeadlessVirtualDisplay runs a windowed browser on an Xvfb display (linux only).
	HeadlessVirtualDisplay
)

func (m HeadlessMode) String() string {
	switch m {
	case HeadlessNone:
		return "none"
	case HeadlessNative:
		return "native"
	case HeadlessVirtualDisplay:
		return "virtual"
	default:
		return fmt.Sprintf("HeadlessMode(%d)", int(m))
	}
}

// ParseHeadlessMode accepts "none", "native" and "virtual" (or "xvfb").
func ParseHeadlessMode(s string) (HeadlessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "false", "off":
		return HeadlessNone, nil
	case "native", "true", "on":
		return HeadlessNative, nil
	case "virtual", "xvfb":
		return HeadlessVirtualDisplay, nil
	default:
		return HeadlessNone, &ConfigError{Field: "headless", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// DefaultProfilePath is the browser profile directory, relative to the
// working directory.
const DefaultProfilePath = "browserData"

// baselineArgs are applied to every launch.
var baselineArgs = []string{
	"--cryptauth-http-host=",
	"--disable-accelerated-2d-canvas",
	"--disable-background-networking",
	"--disable-background-timer-throttling",
	"--disable-browser-side-navigation",
	"--disable-client-side-phishing-detection",
	"--disable-default-apps",
	"--disable-dev-shm-usage",
	"--disable-device-discovery-notifications",
	"--disable-extensions",
	"--disable-features=site-per-process",
	"--disable-hang-monitor",
	"--disable-java",
	"--disable-popup-blocking",
	"--disable-prompt-on-repost",
	"--disable-setuid-sandbox",
	"--disable-sync",
	"--disable-translate",
	"--disable-web-security",
	"--disable-webgl",
	"--metrics-recording-only",
	"--no-first-run",
	"--safebrowsing-disable-auto-update",
	"--no-sandbox",
	"--password-store=basic",
	"--use-mock-keychain",
	"--disable-http2",
	// required for user agent overrides to reach the network stack
	"--enable-features=NetworkService",
}

// automationDefaults are the flags automation launchers add by default. The
// ones in ignoredDefaults announce automation and are never passed.
var automationDefaults = []string{
	"--disable-background-networking",
	"--disable-background-timer-throttling",
	"--disable-breakpad",
	"--disable-browser-side-navigation",
	"--disable-client-side-phishing-detection",
	"--disable-default-apps",
	"--disable-dev-shm-usage",
	"--disable-extensions",
	"--disable-features=site-per-process",
	"--disable-hang-monitor",
	"--disable-popup-blocking",
	"--disable-prompt-on-repost",
	"--disable-sync",
	"--disable-translate",
	"--metrics-recording-only",
	"--no-first-run",
	"--safebrowsing-disable-auto-update",
	"--enable-automation",
	"--password-store=basic",
	"--use-mock-keychain",
	"--mute-audio",
	"--hide-scrollbars",
}

var ignoredDefaults = []string{
	"--enable-automation",
	"--mute-audio",
	"--hide-scrollbars",
}

// Options are the declarative inputs to NewLaunchConfig. Zero values take the
// documented defaults.
type Options struct {
	// Platform defaults to CurrentPlatform().
	Platform Platform
	Headless HeadlessMode
	// DevMode opens DevTools for every tab.
	DevMode bool
	// ProfilePath defaults to DefaultProfilePath. It is created if missing.
	ProfilePath string
	// Window defaults to a buffered DefaultWidth x DefaultHeight.
	Window *WindowGeometry
	// ExecutablePath overrides the platform's fixed browser path.
	ExecutablePath string
}

// LaunchConfig is the resolved, immutable launch configuration.
type LaunchConfig struct {
	platform       Platform
	headless       HeadlessMode
	devMode        bool
	profilePath    string
	window         WindowGeometry
	executablePath string
}

// NewLaunchConfig resolves opts. A virtual display requested off linux is
// downgraded to native headless.
func NewLaunchConfig(opts Options) (*LaunchConfig, error) {
	platform := opts.Platform
	if platform == "" {
		platform = CurrentPlatform()
	}

	executable, err := ExecutablePath(platform)
	if err != nil {
		return nil, err
	}
	if opts.ExecutablePath != "" {
		executable = opts.ExecutablePath
	}

	headless := opts.Headless
	if headless == HeadlessVirtualDisplay && platform != PlatformLinux {
		headless = HeadlessNative
	}

	var window WindowGeometry
	if opts.Window != nil {
		if err := ValidateWindowSize(opts.Window.Width, opts.Window.Height); err != nil {
			return nil, err
		}
		window = *opts.Window
	} else {
		window, err = NewWindowGeometry(DefaultWidth, DefaultHeight, true)
		if err != nil {
			return nil, err
		}
	}

	profile := opts.ProfilePath
	if profile == "" {
		profile = DefaultProfilePath
	}
	// Absolute so orphan cleanup by command line match is specific to this profile.
	if abs, err := filepath.Abs(profile); err == nil {
		profile = abs
	}
	if err := fsutil.CreatePath(profile); err != nil {
		return nil, &ConfigError{Field: "profilePath", Reason: err.Error()}
	}

	return &LaunchConfig{
		platform:       platform,
		headless:       headless,
		devMode:        opts.DevMode,
		profilePath:    profile,
		window:         window,
		executablePath: executable,
	}, nil
}

func (c *LaunchConfig) Platform() Platform     { return c.platform }
func (c *LaunchConfig) Headless() HeadlessMode { return c.headless }
func (c *LaunchConfig) DevMode() bool          { return c.devMode }
func (c *LaunchConfig) ProfilePath() string    { return c.profilePath }
func (c *LaunchConfig) Window() WindowGeometry { return c.window }
func (c *LaunchConfig) ExecutablePath() string { return c.executablePath }
func (c *LaunchConfig) VirtualDisplay() bool   { return c.headless == HeadlessVirtualDisplay }

// ProcessArgs returns the baseline flags, the window size flag and, in dev
// mode, --auto-open-devtools-for-tabs.
func (c *LaunchConfig) ProcessArgs() []string {
	args := make([]string, 0, len(baselineArgs)+2)
	args = append(args, baselineArgs...)
	args = append(args, c.window.WindowSizeArg())
	if c.devMode {
		args = append(args, "--auto-open-devtools-for-tabs")
	}
	return args
}

// LaunchOptions are the process and connection settings derived from a
// LaunchConfig.
type LaunchOptions struct {
	IgnoreHTTPSErrors bool
	// SlowMotion delays every protocol command. Drawn from 1-3ms.
	SlowMotion        time.Duration
	UserDataDir       string
	Args              []string
	IgnoreDefaultArgs []string
	ExecutablePath    string
	DefaultViewport   chrome.Viewport
}

// LaunchOptions builds the options for one launch. SlowMotion is drawn anew on
// every call.
func (c *LaunchConfig) LaunchOptions() LaunchOptions {
	return LaunchOptions{
		IgnoreHTTPSErrors: true,
		SlowMotion:        time.Duration(uniform(1, 3)) * time.Millisecond,
		UserDataDir:       c.profilePath,
		Args:              c.ProcessArgs(),
		IgnoreDefaultArgs: append([]string(nil), ignoredDefaults...),
		ExecutablePath:    c.executablePath,
		DefaultViewport:   c.window.Viewport(),
	}
}

// CommandArgs is the argument list passed after the launch command shape:
// automation defaults not ignored and not already in Args, then Args, the
// profile directory, an ephemeral debugging port and a blank start page.
func (o LaunchOptions) CommandArgs() []string {
	skip := make(map[string]bool, len(o.IgnoreDefaultArgs)+len(o.Args))
	for _, a := range o.IgnoreDefaultArgs {
		skip[a] = true
	}
	for _, a := range o.Args {
		skip[a] = true
	}

	var args []string
	for _, a := range automationDefaults {
		if !skip[a] {
			args = append(args, a)
		}
	}
	args = append(args, o.Args...)
	args = append(args,
		"--user-data-dir="+o.UserDataDir,
		"--remote-debugging-port=0",
		"about:blank",
	)
	return args
}
