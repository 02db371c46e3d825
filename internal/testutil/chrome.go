// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"os"
	"os/exec"
	"runtime"
	"testing"
)

// ChromeEnv names a browser binary to use instead of searching for one.
const ChromeEnv = "BOPBOT_CHROME"

// ChromePath locates a Chrome binary, or returns "" when none is installed.
func ChromePath() string {
	if p := os.Getenv(ChromeEnv); p != "" {
		return p
	}

	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// RequireChrome skips the test in -short mode or when no browser is
// installed, and returns the browser path otherwise.
func RequireChrome(t testing.TB) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	p := ChromePath()
	if p == "" {
		t.Skip("Chrome not found, set " + ChromeEnv + " to run browser tests")
	}
	return p
}
