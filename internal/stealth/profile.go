package stealth

import (
	"encoding/json"
	"fmt"
)

// Media flag names understood by the override script. A false flag hides the
// corresponding navigator or window API.
const (
	MediaWebdriver               = "webdriver"
	MediaGetUserMedia            = "getUserMedia"
	MediaWebkitGetUserMedia      = "webkitGetUserMedia"
	MediaMozGetUserMedia         = "mozGetUserMedia"
	MediaWebkitRTCPeerConnection = "webkitRTCPeerConnection"
	MediaDevices                 = "mediaDevices"
)

// DefaultMedia returns every media flag set to false.
func DefaultMedia() map[string]bool {
	return map[string]bool{
		MediaWebdriver:               false,
		MediaGetUserMedia:            false,
		MediaWebkitGetUserMedia:      false,
		MediaMozGetUserMedia:         false,
		MediaWebkitRTCPeerConnection: false,
		MediaDevices:                 false,
	}
}

// DefaultPlatforms matches the Windows user agent.
var DefaultPlatforms = []string{"Win32"}

// FingerprintProfile is serialized into the injected bundle.
type FingerprintProfile struct {
	UserAgent string          `json:"userAgent"`
	Platforms []string        `json:"platforms"`
	Media     map[string]bool `json:"media"`
}

// Overrides are caller-supplied profile fields. Set fields win over the
// generated defaults; Media is merged key by key.
type Overrides struct {
	UserAgent string          `json:"userAgent,omitempty" mapstructure:"user_agent"`
	Platforms []string        `json:"platforms,omitempty" mapstructure:"platforms"`
	Media     map[string]bool `json:"media,omitempty" mapstructure:"media"`
}

// BuildProfile merges overrides onto the defaults for userAgent.
func BuildProfile(userAgent string, o Overrides) FingerprintProfile {
	p := FingerprintProfile{
		UserAgent: userAgent,
		Platforms: append([]string(nil), DefaultPlatforms...),
		Media:     DefaultMedia(),
	}
	if o.UserAgent != "" {
		p.UserAgent = o.UserAgent
	}
	if len(o.Platforms) > 0 {
		p.Platforms = append([]string(nil), o.Platforms...)
	}
	for k, v := range o.Media {
		p.Media[k] = v
	}
	return p
}

// Bundle is the document-start script: the DOM helpers, the profile constant
// and the navigator override, in that order. The whole bundle is one block so
// none of its declarations reach the page's global scope.
func Bundle(p FingerprintProfile, scripts *ScriptCache) (string, error) {
	helpers, err := scripts.DOMHelpers()
	if err != nil {
		return "", err
	}
	override, err := scripts.Override()
	if err != nil {
		return "", err
	}

	profile, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling fingerprint profile: %w", err)
	}

	return fmt.Sprintf("{\n%s\nconst BOPBOT_PROFILE = %s;\n%s\n}\n", helpers, profile, override), nil
}
