// Package config loads bopbot settings through viper and maps them onto the
// launcher, session and action options.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/chrome/launcher"
	"github.com/tomyan/bopbot/internal/logging"
	"github.com/tomyan/bopbot/internal/session"
	"github.com/tomyan/bopbot/internal/stealth"
)

// EnvPrefix is the prefix of environment overrides, e.g. BOPBOT_BROWSER_HEADLESS.
const EnvPrefix = "BOPBOT"

// MaxTypingDelay caps the pause between keystrokes.
const MaxTypingDelay = 100 * time.Millisecond

// Config is the full settings tree.
type Config struct {
	Browser BrowserConfig  `mapstructure:"browser"`
	Session PageConfig     `mapstructure:"session"`
	Actions ActionsConfig  `mapstructure:"actions"`
	Logger  logging.Config `mapstructure:"logger"`
}

// BrowserConfig drives the launch.
type BrowserConfig struct {
	// Platform is mac or linux; empty detects the host.
	Platform       string `mapstructure:"platform"`
	Headless       string `mapstructure:"headless"`
	DevMode        bool   `mapstructure:"dev_mode"`
	ProfilePath    string `mapstructure:"profile_path"`
	ExecutablePath string `mapstructure:"executable_path"`
	// Discover searches PATH and known install locations when ExecutablePath
	// is empty, instead of using the platform's fixed path.
	Discover bool `mapstructure:"discover"`
	Width    int  `mapstructure:"width"`
	Height   int  `mapstructure:"height"`
	// BufferWindow jitters the window size once per launch.
	BufferWindow     bool          `mapstructure:"buffer_window"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// PageConfig drives the page session and its fingerprint.
type PageConfig struct {
	PageLoadTimeout time.Duration   `mapstructure:"page_load_timeout"`
	UserAgent       string          `mapstructure:"user_agent"`
	Platforms       []string        `mapstructure:"platforms"`
	Media           map[string]bool `mapstructure:"media"`
}

// ActionsConfig drives the action layer.
type ActionsConfig struct {
	AnimationTimeout time.Duration `mapstructure:"animation_timeout"`
	TypingDelay      time.Duration `mapstructure:"typing_delay"`
	ScreenshotDir    string        `mapstructure:"screenshot_dir"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("browser.platform", "")
	v.SetDefault("browser.headless", launcher.HeadlessNone.String())
	v.SetDefault("browser.dev_mode", false)
	v.SetDefault("browser.profile_path", launcher.DefaultProfilePath)
	v.SetDefault("browser.executable_path", "")
	v.SetDefault("browser.discover", false)
	v.SetDefault("browser.width", launcher.DefaultWidth)
	v.SetDefault("browser.height", launcher.DefaultHeight)
	v.SetDefault("browser.buffer_window", true)
	v.SetDefault("browser.handshake_timeout", launcher.DefaultHandshakeTimeout)

	v.SetDefault("session.page_load_timeout", session.DefaultPageLoadTimeout)
	v.SetDefault("session.user_agent", "")

	v.SetDefault("actions.animation_timeout", 5*time.Second)
	v.SetDefault("actions.typing_delay", 50*time.Millisecond)
	v.SetDefault("actions.screenshot_dir", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.name", "bopbot")
	v.SetDefault("logger.dir", "")
	v.SetDefault("logger.console", true)
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
}

// Bind sets up environment overrides on v.
func Bind(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	if _, err := launcher.ParseHeadlessMode(c.Browser.Headless); err != nil {
		errs = append(errs, err)
	}
	if err := launcher.ValidateWindowSize(c.Browser.Width, c.Browser.Height); err != nil {
		errs = append(errs, err)
	}
	if c.Browser.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("browser.handshake_timeout must not be negative"))
	}
	if c.Session.PageLoadTimeout < 0 {
		errs = append(errs, errors.New("session.page_load_timeout must not be negative"))
	}
	if c.Actions.AnimationTimeout < 0 {
		errs = append(errs, errors.New("actions.animation_timeout must not be negative"))
	}
	if c.Actions.TypingDelay < 0 || c.Actions.TypingDelay > MaxTypingDelay {
		errs = append(errs, fmt.Errorf("actions.typing_delay must be between 0 and %s", MaxTypingDelay))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// LaunchOptions maps the browser section onto launcher.Options.
func (c *Config) LaunchOptions() (launcher.Options, error) {
	headless, err := launcher.ParseHeadlessMode(c.Browser.Headless)
	if err != nil {
		return launcher.Options{}, err
	}

	window, err := launcher.NewWindowGeometry(c.Browser.Width, c.Browser.Height, c.Browser.BufferWindow)
	if err != nil {
		return launcher.Options{}, err
	}

	executable := c.Browser.ExecutablePath
	if c.Browser.Discover {
		found := launcher.FindChrome(executable)
		if found == "" {
			return launcher.Options{}, &launcher.ConfigError{Field: "executablePath", Reason: "no Chrome installation found"}
		}
		executable = found
	}

	return launcher.Options{
		Platform:       launcher.Platform(c.Browser.Platform),
		Headless:       headless,
		DevMode:        c.Browser.DevMode,
		ProfilePath:    c.Browser.ProfilePath,
		Window:         &window,
		ExecutablePath: executable,
	}, nil
}

// SupervisorOptions maps the handshake timeout onto launcher.SupervisorOptions.
func (c *Config) SupervisorOptions(logger *zap.Logger) launcher.SupervisorOptions {
	return launcher.SupervisorOptions{
		HandshakeTimeout: c.Browser.HandshakeTimeout,
		Logger:           logger,
	}
}

// SessionConfig maps the session section onto session.Config. The viewport
// is left to the driver, which takes it from the launch window.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		PageLoadTimeout: c.Session.PageLoadTimeout,
		UserAgent:       c.Session.UserAgent,
		Overrides: stealth.Overrides{
			Platforms: c.Session.Platforms,
			Media:     mediaFlags(c.Session.Media),
		},
	}
}

// mediaFlags restores the camel-cased flag names that viper lowercases.
func mediaFlags(in map[string]bool) map[string]bool {
	if len(in) == 0 {
		return nil
	}
	known := make(map[string]string)
	for name := range stealth.DefaultMedia() {
		known[strings.ToLower(name)] = name
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if name, ok := known[strings.ToLower(k)]; ok {
			k = name
		}
		out[k] = v
	}
	return out
}
