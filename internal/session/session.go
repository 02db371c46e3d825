package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tomyan/bopbot/internal/chrome"
	"github.com/tomyan/bopbot/internal/logging"
	"github.com/tomyan/bopbot/internal/stealth"
)

// DefaultPageLoadTimeout bounds a navigation when Config leaves it unset.
const DefaultPageLoadTimeout = 30 * time.Second

// Config is the per-session page setup.
type Config struct {
	// Viewport is applied once when the page is created. A zero value skips it.
	Viewport        chrome.Viewport
	PageLoadTimeout time.Duration
	// UserAgent is used as-is when set; otherwise one is generated.
	UserAgent string
	Overrides stealth.Overrides
}

// State is a snapshot of the session's page.
type State struct {
	PageID             string
	FingerprintApplied bool
	ViewportApplied    bool
}

// NavigationError reports a failed or timed out navigation. The session stays
// usable after one.
type NavigationError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *NavigationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("navigating to %s: timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("navigating to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// PageSession holds the single live page of a browser. It is not safe for
// concurrent use.
type PageSession struct {
	browser Browser
	scripts *stealth.ScriptCache
	cfg     Config
	logger  *zap.Logger

	page               Page
	userAgent          string
	scriptID           string
	fingerprintApplied bool
	viewportApplied    bool
}

// New opens a page, closes every other page and applies the viewport. A nil
// scripts uses the embedded resources.
func New(ctx context.Context, browser Browser, scripts *stealth.ScriptCache, cfg Config, logger *zap.Logger) (*PageSession, error) {
	if scripts == nil {
		scripts = stealth.NewScriptCache(nil, "")
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = DefaultPageLoadTimeout
	}

	s := &PageSession{
		browser: browser,
		scripts: scripts,
		cfg:     cfg,
		logger:  logging.Nop(logger).Named("session"),
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	s.page = page

	pages, err := browser.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	for _, p := range pages {
		if p.ID() == page.ID() {
			continue
		}
		if err := p.Close(ctx); err != nil {
			return nil, fmt.Errorf("closing page %s: %w", p.ID(), err)
		}
		s.logger.Debug("closed extra page", zap.String("page", p.ID()))
	}

	if cfg.Viewport != (chrome.Viewport{}) {
		if err := page.SetViewport(ctx, cfg.Viewport); err != nil {
			return nil, fmt.Errorf("setting viewport: %w", err)
		}
		s.viewportApplied = true
	}

	return s, nil
}

// Page returns the live page.
func (s *PageSession) Page() Page {
	return s.page
}

// State reports what has been applied to the page.
func (s *PageSession) State() State {
	return State{
		PageID:             s.page.ID(),
		FingerprintApplied: s.fingerprintApplied,
		ViewportApplied:    s.viewportApplied,
	}
}

// UserAgent is the user agent of the last applied fingerprint.
func (s *PageSession) UserAgent() string {
	return s.userAgent
}

// PageLoadTimeout bounds each navigation.
func (s *PageSession) PageLoadTimeout() time.Duration {
	return s.cfg.PageLoadTimeout
}

// ApplyFingerprint registers the stealth bundle for the next document. It is
// skipped when already applied unless force is set; a forced apply also
// resyncs the User-Agent request header.
func (s *PageSession) ApplyFingerprint(ctx context.Context, force bool) error {
	applied, err := s.applyFingerprint(ctx, force)
	if err != nil || !applied || !force {
		return err
	}
	return s.syncUserAgent(ctx)
}

func (s *PageSession) applyFingerprint(ctx context.Context, force bool) (bool, error) {
	if s.fingerprintApplied && !force {
		return false, nil
	}

	userAgent := s.cfg.UserAgent
	if userAgent == "" {
		userAgent = stealth.DefaultUserAgent()
	}
	profile := stealth.BuildProfile(userAgent, s.cfg.Overrides)

	bundle, err := stealth.Bundle(profile, s.scripts)
	if err != nil {
		return false, err
	}

	if s.scriptID != "" {
		if err := s.page.RemoveScriptOnNewDocument(ctx, s.scriptID); err != nil {
			return false, fmt.Errorf("removing previous fingerprint: %w", err)
		}
		s.scriptID = ""
		s.fingerprintApplied = false
	}

	id, err := s.page.EvaluateOnNewDocument(ctx, bundle)
	if err != nil {
		return false, fmt.Errorf("injecting fingerprint: %w", err)
	}

	s.scriptID = id
	s.userAgent = profile.UserAgent
	s.fingerprintApplied = true
	s.logger.Debug("fingerprint applied",
		zap.String("user_agent", s.userAgent),
		zap.Strings("platforms", profile.Platforms),
		zap.Bool("forced", force))
	return true, nil
}

func (s *PageSession) syncUserAgent(ctx context.Context) error {
	if err := s.page.SetExtraHTTPHeaders(ctx, map[string]string{"User-Agent": s.userAgent}); err != nil {
		return fmt.Errorf("setting User-Agent header: %w", err)
	}
	if err := s.page.SetUserAgent(ctx, s.userAgent); err != nil {
		return fmt.Errorf("setting user agent: %w", err)
	}
	return nil
}

// Navigate applies the fingerprint (regenerating it when asked or when it
// was never applied), syncs the User-Agent header and loads url, waiting for
// DOM content loaded.
func (s *PageSession) Navigate(ctx context.Context, url string, regenerate bool) error {
	if _, err := s.applyFingerprint(ctx, regenerate || !s.fingerprintApplied); err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	if err := s.syncUserAgent(ctx); err != nil {
		return &NavigationError{URL: url, Err: err}
	}

	start := time.Now()
	if err := s.page.Goto(ctx, url, s.cfg.PageLoadTimeout); err != nil {
		navErr := &NavigationError{
			URL:     url,
			Timeout: errors.Is(err, chrome.ErrNavigationTimeout) || errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}
		s.logger.Warn("navigation failed", zap.String("url", url), zap.Bool("timeout", navErr.Timeout), zap.Error(err))
		return navErr
	}

	s.logger.Info("navigated", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))
	return nil
}
