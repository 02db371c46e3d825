package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tomyan/bopbot/internal/chrome"
	"github.com/tomyan/bopbot/internal/stealth"
)

func newSession(t *testing.T, cfg Config) (*PageSession, *fakeBrowser) {
	t.Helper()
	browser := &fakeBrowser{existing: []*fakePage{newFakePage("a"), newFakePage("b")}}
	s, err := New(context.Background(), browser, nil, cfg, nil)
	require.NoError(t, err)
	return s, browser
}

func TestNew_KeepsOnlyNewPage(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{Viewport: chrome.Viewport{Width: 1100, Height: 700}})

	for _, p := range browser.existing {
		assert.True(t, p.closed, p.id)
	}
	assert.False(t, browser.created.closed)
	assert.Same(t, browser.created, s.Page())
	assert.Equal(t, []string{"SetViewport 1100x700"}, browser.created.Calls())

	state := s.State()
	assert.Equal(t, "new", state.PageID)
	assert.True(t, state.ViewportApplied)
	assert.False(t, state.FingerprintApplied)
}

func TestNew_ZeroViewportSkipped(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{})

	assert.Empty(t, browser.created.Calls())
	assert.False(t, s.State().ViewportApplied)
	assert.Equal(t, DefaultPageLoadTimeout, s.PageLoadTimeout())
}

func TestNavigate_FingerprintBeforeGoto(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{})

	require.NoError(t, s.Navigate(context.Background(), "http://example.test/", false))

	assert.Equal(t, []string{
		"EvaluateOnNewDocument",
		"SetExtraHTTPHeaders",
		"SetUserAgent",
		"Goto http://example.test/",
	}, browser.created.Calls())

	page := browser.created
	require.Len(t, page.scripts, 1)
	for _, src := range page.scripts {
		assert.Contains(t, src, "const BOPBOT_PROFILE = ")
		assert.Contains(t, src, s.UserAgent())
	}
	assert.Equal(t, s.UserAgent(), page.headers["User-Agent"])
	assert.Equal(t, s.UserAgent(), page.ua)
	assert.True(t, strings.HasPrefix(s.UserAgent(), "Mozilla/5.0 (Windows NT 10.0"))
	assert.True(t, s.State().FingerprintApplied)
}

func TestNavigate_ReusesFingerprint(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{})
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, "http://one.test/", false))
	ua := s.UserAgent()
	require.NoError(t, s.Navigate(ctx, "http://two.test/", false))

	calls := browser.created.Calls()
	assert.Equal(t, 1, count(calls, "EvaluateOnNewDocument"))
	assert.Equal(t, 2, count(calls, "SetExtraHTTPHeaders"))
	assert.Equal(t, ua, s.UserAgent())
}

func TestNavigate_RegenerateReplacesScript(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{})
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, "http://one.test/", false))
	require.NoError(t, s.Navigate(ctx, "http://two.test/", true))

	calls := browser.created.Calls()
	assert.Equal(t, 2, count(calls, "EvaluateOnNewDocument"))
	assert.Equal(t, 1, count(calls, "RemoveScriptOnNewDocument"))
	assert.Len(t, browser.created.scripts, 1)
}

func TestNavigate_FailedRegenerateReinjectsNextTime(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{})
	ctx := context.Background()
	page := browser.created

	require.NoError(t, s.Navigate(ctx, "http://one.test/", false))

	page.injectErrs = []error{errors.New("target crashed")}
	err := s.Navigate(ctx, "http://two.test/", true)
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.False(t, s.State().FingerprintApplied)
	assert.Empty(t, page.scripts)

	require.NoError(t, s.Navigate(ctx, "http://three.test/", false))

	calls := page.Calls()
	assert.Equal(t, []string{"EvaluateOnNewDocument", "SetExtraHTTPHeaders", "SetUserAgent", "Goto http://three.test/"}, calls[len(calls)-4:])
	assert.Len(t, page.scripts, 1)
	assert.True(t, s.State().FingerprintApplied)
}

func TestApplyFingerprint_ExplicitUserAgent(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{UserAgent: "agent/1"})

	require.NoError(t, s.ApplyFingerprint(context.Background(), false))
	assert.Equal(t, "agent/1", s.UserAgent())
	assert.Equal(t, []string{"EvaluateOnNewDocument"}, browser.created.Calls(), "unforced apply leaves headers alone")

	require.NoError(t, s.ApplyFingerprint(context.Background(), false))
	assert.Len(t, browser.created.Calls(), 1, "second apply is skipped")

	require.NoError(t, s.ApplyFingerprint(context.Background(), true))
	assert.Equal(t, "agent/1", browser.created.headers["User-Agent"])
}

func TestApplyFingerprint_OverrideUserAgentWins(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{
		UserAgent: "config-agent",
		Overrides: stealth.Overrides{UserAgent: "override-agent", Platforms: []string{"Linux x86_64"}},
	})

	require.NoError(t, s.ApplyFingerprint(context.Background(), true))

	assert.Equal(t, "override-agent", s.UserAgent())
	assert.Equal(t, "override-agent", browser.created.ua)
	for _, src := range browser.created.scripts {
		assert.Contains(t, src, `"platforms":["Linux x86_64"]`)
	}
}

func TestNavigate_Timeout(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	browser := &fakeBrowser{}
	s, err := New(context.Background(), browser, nil, Config{}, zap.New(core))
	require.NoError(t, err)
	browser.created.gotoErr = chrome.ErrNavigationTimeout

	err = s.Navigate(context.Background(), "http://slow.test/", false)

	var navErr *NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, "http://slow.test/", navErr.URL)
	assert.True(t, navErr.Timeout)
	assert.ErrorIs(t, err, chrome.ErrNavigationTimeout)
	assert.Equal(t, 1, logs.FilterMessage("navigation failed").Len())

	// the session stays usable
	browser.created.gotoErr = nil
	assert.NoError(t, s.Navigate(context.Background(), "http://fast.test/", false))
}

func TestNavigate_Failure(t *testing.T) {
	t.Parallel()

	s, browser := newSession(t, Config{})
	browser.created.gotoErr = chrome.ErrNavigationFailed

	err := s.Navigate(context.Background(), "http://gone.test/", false)

	var navErr *NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.False(t, navErr.Timeout)
	assert.ErrorIs(t, err, chrome.ErrNavigationFailed)
	assert.Contains(t, err.Error(), "http://gone.test/")
}

func count(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
