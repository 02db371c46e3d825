package launcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tomyan/bopbot/internal/testutil"
)

func bannerScript(endpoint string) string {
	return "echo 'starting up'\necho \"DevTools listening on " + endpoint + "\" >&2\nexec sleep 30"
}

func TestLaunch_HandshakeAndShutdown(t *testing.T) {
	// given a fake browser that announces a working endpoint
	fb := testutil.NewFakeBrowser(t)
	exe := fakeChrome(t, bannerScript(fb.URL()))
	cfg := fakeConfig(t, exe, HeadlessNone)
	runner := &mockRunner{}
	core, logs := observer.New(zap.DebugLevel)
	s := NewSupervisor(cfg, SupervisorOptions{
		Runner:           runner,
		HandshakeTimeout: 10 * time.Second,
		Logger:           zap.New(core),
	})

	// when
	client, err := s.Launch(context.Background())

	// then the supervisor is running with a connected client
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, StateRunning, s.State())
	require.NotNil(t, s.Handle())
	assert.Equal(t, fb.URL(), s.Handle().Endpoint)
	assert.NotZero(t, s.Handle().PID)
	assert.Nil(t, s.Handle().DisplayServer)
	assert.Same(t, client, s.Client())
	assert.Len(t, fb.CallsTo("Security.setIgnoreCertificateErrors"), 1)
	assert.Equal(t, 1, logs.FilterMessage("browser running").Len())

	// when shut down twice
	require.NoError(t, s.Shutdown(context.Background()))
	callsAfterFirst := len(runner.calls)
	require.NoError(t, s.Shutdown(context.Background()))

	// then cleanup ran exactly once
	assert.Equal(t, StateClosed, s.State())
	assert.Nil(t, s.Handle())
	assert.True(t, client.Closed())
	assert.Len(t, fb.CallsTo("Browser.close"), 1)
	assert.NotNil(t, runner.findCall("pkill", "-9", "-f", cfg.ProfilePath()))
	assert.Equal(t, callsAfterFirst, len(runner.calls), "second shutdown must not run cleanup again")
	assert.Equal(t, 1, logs.FilterMessage("shutting down browser").Len())
}

func TestLaunch_VirtualDisplay(t *testing.T) {
	// given a virtual display whose wrapper just runs the executable
	fb := testutil.NewFakeBrowser(t)
	exe := fakeChrome(t, bannerScript(fb.URL()))
	cfg := fakeConfig(t, exe, HeadlessVirtualDisplay)

	lockDir := t.TempDir()
	lock := filepath.Join(lockDir, ".X99-lock")
	require.NoError(t, os.WriteFile(lock, []byte("99"), 0o644))

	runner := &mockRunner{}
	display := &VirtualDisplay{
		Wrapper:     []string{"env"},
		ProcessName: "Xvfb",
		LockGlob:    filepath.Join(lockDir, ".X*-lock"),
		runner:      runner,
	}
	s := NewSupervisor(cfg, SupervisorOptions{Runner: runner, Display: display, HandshakeTimeout: 10 * time.Second})

	assert.Equal(t, []string{"env", exe}, s.Command()[:2])

	// when
	_, err := s.Launch(context.Background())
	require.NoError(t, err)
	assert.Same(t, display, s.Handle().DisplayServer)
	require.NoError(t, s.Shutdown(context.Background()))

	// then the display server was killed by name and its lock removed
	assert.NotNil(t, runner.findCall("pgrep", "-x", "Xvfb"))
	assert.NotNil(t, runner.findCall("pkill", "-x", "Xvfb"))
	_, err = os.Stat(lock)
	assert.True(t, os.IsNotExist(err))
}

func TestLaunch_ConnectFailure(t *testing.T) {
	// given a banner pointing at an endpoint nobody listens on
	exe := fakeChrome(t, bannerScript("ws://127.0.0.1:1/devtools/browser/none"))
	cfg := fakeConfig(t, exe, HeadlessNone)
	s := NewSupervisor(cfg, SupervisorOptions{Runner: &mockRunner{}, HandshakeTimeout: 10 * time.Second})

	// when
	_, err := s.Launch(context.Background())

	// then
	var lerr *LaunchError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, StageConnect, lerr.Stage)
	assert.Equal(t, StateIdle, s.State())
}

func TestSupervisor_CommandShapes(t *testing.T) {
	t.Parallel()

	native := NewSupervisor(fakeConfig(t, "/opt/chrome", HeadlessNative), SupervisorOptions{Runner: &mockRunner{}})
	cmd := native.Command()
	assert.Equal(t, []string{"/opt/chrome", "--headless", "--disable-gpu", "--hide-scrollbars", "--mute-audio"}, cmd[:5])

	plain := NewSupervisor(fakeConfig(t, "/opt/chrome", HeadlessNone), SupervisorOptions{Runner: &mockRunner{}})
	cmd = plain.Command()
	assert.Equal(t, "/opt/chrome", cmd[0])
	assert.NotContains(t, cmd, "--headless")
	assert.NotContains(t, cmd, "--enable-automation")
	assert.Equal(t, "about:blank", cmd[len(cmd)-1])
	assert.Contains(t, cmd, "--remote-debugging-port=0")

	virtual := NewSupervisor(fakeConfig(t, "/opt/chrome", HeadlessVirtualDisplay), SupervisorOptions{Runner: &mockRunner{}})
	cmd = virtual.Command()
	assert.Equal(t, []string{"xvfb-run", "--auto-servernum", "-e", "/dev/stdout", "/opt/chrome"}, cmd[:5])
	assert.NotContains(t, cmd, "--headless")
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
