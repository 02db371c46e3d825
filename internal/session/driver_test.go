package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/bopbot/internal/chrome"
	"github.com/tomyan/bopbot/internal/chrome/launcher"
)

type fakeProcess struct {
	launchErr error
	launches  int
	shutdowns int
}

func (p *fakeProcess) Launch(ctx context.Context) (*chrome.Client, error) {
	p.launches++
	if p.launchErr != nil {
		return nil, p.launchErr
	}
	return nil, nil
}

func (p *fakeProcess) Shutdown(ctx context.Context) error {
	p.shutdowns++
	return nil
}

func newLaunchConfig(t *testing.T) *launcher.LaunchConfig {
	t.Helper()
	window, err := launcher.NewWindowGeometry(900, 600, false)
	require.NoError(t, err)
	cfg, err := launcher.NewLaunchConfig(launcher.Options{
		Platform:    launcher.PlatformLinux,
		ProfilePath: t.TempDir(),
		Window:      &window,
	})
	require.NoError(t, err)
	return cfg
}

func TestDriver_LaunchGotoClose(t *testing.T) {
	t.Parallel()

	process := &fakeProcess{}
	browser := &fakeBrowser{}
	d := NewDriver(newLaunchConfig(t), DriverOptions{
		Process: process,
		Browser: func(*chrome.Client) Browser { return browser },
	})
	ctx := context.Background()

	require.NoError(t, d.Launch(ctx))
	require.NotNil(t, d.Session())
	assert.True(t, d.Session().State().ViewportApplied)
	assert.Contains(t, browser.created.Calls(), "SetViewport 900x600")

	require.NoError(t, d.Goto(ctx, "http://example.test/"))
	assert.Contains(t, browser.created.Calls(), "Goto http://example.test/")

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 2, process.shutdowns)
	assert.Nil(t, d.Session())
}

func TestDriver_GotoBeforeLaunch(t *testing.T) {
	t.Parallel()

	d := NewDriver(newLaunchConfig(t), DriverOptions{Process: &fakeProcess{}})

	assert.ErrorIs(t, d.Goto(context.Background(), "http://x.test/"), ErrNotLaunched)
}

func TestDriver_LaunchError(t *testing.T) {
	t.Parallel()

	launchErr := &launcher.LaunchError{Stage: launcher.StageSpawn, Err: errors.New("no such file")}
	process := &fakeProcess{launchErr: launchErr}
	d := NewDriver(newLaunchConfig(t), DriverOptions{Process: process})

	err := d.Launch(context.Background())

	var le *launcher.LaunchError
	require.True(t, errors.As(err, &le))
	assert.Nil(t, d.Session())
}
