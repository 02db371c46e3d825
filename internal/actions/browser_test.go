package actions

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/bopbot/internal/chrome/launcher"
	"github.com/tomyan/bopbot/internal/dom"
	"github.com/tomyan/bopbot/internal/session"
	"github.com/tomyan/bopbot/internal/testutil"
)

// startSandbox launches a headless browser on the sandbox page.
func startSandbox(t *testing.T) (context.Context, *session.Driver, *Actions) {
	t.Helper()
	chromePath := testutil.RequireChrome(t)
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("browser tests need mac or linux")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	cfg, err := launcher.NewLaunchConfig(launcher.Options{
		Headless:       launcher.HeadlessNative,
		ProfilePath:    t.TempDir(),
		ExecutablePath: chromePath,
	})
	require.NoError(t, err)

	d := session.NewDriver(cfg, session.DriverOptions{})
	require.NoError(t, d.Launch(ctx))
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	srv := testutil.NewSandbox(t)
	require.NoError(t, d.Goto(ctx, srv.URL+"/"))

	return ctx, d, New(d.Session(), 5*time.Second, nil)
}

func TestBrowser_SelectorExists(t *testing.T) {
	ctx, _, a := startSandbox(t)

	sel := dom.MustNew("title", "#app", "div", "h1")
	assert.True(t, a.SelectorExists(ctx, sel))

	sel.SetHierarchy([]string{"#missing-" + uuid.NewString()})
	assert.False(t, a.SelectorExists(ctx, sel))
}

func TestBrowser_SelectorExistsMalformed(t *testing.T) {
	ctx, _, a := startSandbox(t)

	sel := dom.MustNew("broken", "#app", "div[")
	assert.False(t, a.SelectorExists(ctx, sel), "a selector syntax error reads as absent")
}

func TestBrowser_TypeQueryClear(t *testing.T) {
	ctx, _, a := startSandbox(t)
	input := dom.MustNew("name_input", "#name")

	require.NoError(t, a.Type(ctx, input, "hello world", 0))
	v, err := a.Query(ctx, input, "value")
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)

	require.NoError(t, a.Clear(ctx, input))
	v, err = a.Query(ctx, input, "value")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestBrowser_ToggleTwice(t *testing.T) {
	ctx, _, a := startSandbox(t)
	target := dom.MustNew("target", "#target")
	toggle := dom.MustNew("toggle", "#toggle")

	before, err := a.SelectorVisible(ctx, target)
	require.NoError(t, err)
	require.True(t, before)

	require.NoError(t, a.Click(ctx, toggle, true))
	hidden, err := a.SelectorVisible(ctx, target)
	require.NoError(t, err)
	assert.False(t, hidden)

	require.NoError(t, a.Click(ctx, toggle, true))
	after, err := a.SelectorVisible(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBrowser_Select(t *testing.T) {
	ctx, _, a := startSandbox(t)
	colour := dom.MustNew("colour", "#colour")

	require.NoError(t, a.Select(ctx, colour, "blue"))

	v, err := a.Query(ctx, colour, "value")
	require.NoError(t, err)
	assert.Equal(t, "blue", v)
}

func TestBrowser_WaitForMissingElement(t *testing.T) {
	ctx, d, _ := startSandbox(t)
	a := New(d.Session(), 300*time.Millisecond, nil)

	err := a.WaitForElement(ctx, dom.MustNew("missing", "#nope"), false)

	var notFound *ElementNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Label)
}

func TestBrowser_FingerprintVisibleToPageScripts(t *testing.T) {
	ctx, d, a := startSandbox(t)

	probe, err := a.page().Evaluate(ctx, "window.__probe")
	require.NoError(t, err)
	fields, ok := probe.(map[string]interface{})
	require.True(t, ok, "probe: %#v", probe)

	assert.Equal(t, false, fields["webdriver"])
	assert.Equal(t, d.Session().UserAgent(), fields["userAgent"])
	assert.Equal(t, "Win32", fields["platform"])

	leaked, err := a.page().Evaluate(ctx, "typeof BOPBOT_PROFILE !== 'undefined' || typeof domHelpers !== 'undefined' || '__bopbot' in window")
	require.NoError(t, err)
	assert.Equal(t, false, leaked, "bundle declarations stay out of the page scope")
}

func TestBrowser_QueryFrame(t *testing.T) {
	ctx, d, a := startSandbox(t)
	inner := dom.MustNew("inner", "#inner")

	// the srcdoc frame can finish after DOMContentLoaded of the parent
	var frame Frame
	require.Eventually(t, func() bool {
		frames, err := d.Session().Page().Frames(ctx)
		if err != nil || len(frames) == 0 {
			return false
		}
		frame = frames[0]
		return a.SelectorExistsInFrame(ctx, frame, inner)
	}, 5*time.Second, 100*time.Millisecond)

	v, err := a.QueryFrame(ctx, frame, inner, "innerText")
	require.NoError(t, err)
	assert.Equal(t, "framed", v)
	assert.False(t, a.SelectorExists(ctx, inner), "frame content is not in the main document")
}

func TestBrowser_Screenshot(t *testing.T) {
	ctx, _, a := startSandbox(t)
	a.Dir = t.TempDir()

	require.NoError(t, a.Screenshot(ctx, "sandbox"))
	assert.FileExists(t, filepath.Join(a.Dir, "sandbox-capture.png"))
}
