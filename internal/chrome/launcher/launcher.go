// Package launcher resolves browser launch configuration and supervises the
// browser process: spawn, DevTools handshake and teardown.
package launcher

import (
	"os"
	"os/exec"
	"runtime"
)

// Platform is an operating system the driver knows how to launch on.
type Platform string

const (
	PlatformMac   Platform = "mac"
	PlatformLinux Platform = "linux"
)

const (
	macExecutable   = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	linuxExecutable = "/usr/bin/google-chrome"
)

// CurrentPlatform maps runtime.GOOS onto a Platform. Unsupported systems come
// back under their GOOS name and are rejected by NewLaunchConfig.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMac
	case "linux":
		return PlatformLinux
	default:
		return Platform(runtime.GOOS)
	}
}

// ExecutablePath returns the fixed browser path for a platform.
func ExecutablePath(p Platform) (string, error) {
	switch p {
	case PlatformMac:
		return macExecutable, nil
	case PlatformLinux:
		return linuxExecutable, nil
	default:
		return "", &ConfigError{Field: "platform", Reason: "unsupported platform " + string(p)}
	}
}

// FindChrome locates Chrome on the system. If chromePath is non-empty and exists,
// it is returned directly. Otherwise, searches PATH and known install locations.
func FindChrome(chromePath string) string {
	if chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
		return ""
	}

	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			macExecutable,
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			linuxExecutable,
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
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
