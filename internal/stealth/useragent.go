// Package stealth builds the spoofed browser fingerprint: the user agent, the
// navigator profile and the document-start script bundle that applies it.
package stealth

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// ChromeVersions lists stable Chrome release strings by major version.
var ChromeVersions = map[string][]string{
	"70": {"70.0.3538.67", "70.0.3538.77", "70.0.3538.102", "70.0.3538.110"},
	"71": {"71.0.3578.80", "71.0.3578.98"},
	"72": {"72.0.3626.81", "72.0.3626.96", "72.0.3626.109", "72.0.3626.119", "72.0.3626.121"},
	"73": {"73.0.3683.75", "73.0.3683.86", "73.0.3683.103"},
	"74": {"74.0.3729.108", "74.0.3729.131", "74.0.3729.157", "74.0.3729.169"},
	"75": {"75.0.3770.80", "75.0.3770.90", "75.0.3770.100", "75.0.3770.142"},
	"76": {"76.0.3809.87", "76.0.3809.100", "76.0.3809.132"},
	"77": {"77.0.3865.75", "77.0.3865.90", "77.0.3865.120"},
	"78": {"78.0.3904.70", "78.0.3904.87", "78.0.3904.97", "78.0.3904.108"},
	"79": {"79.0.3945.79", "79.0.3945.88", "79.0.3945.117", "79.0.3945.130"},
	"80": {"80.0.3987.87", "80.0.3987.106", "80.0.3987.116", "80.0.3987.122", "80.0.3987.132", "80.0.3987.149", "80.0.3987.163"},
}

const userAgentTemplate = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36"

// allVersions is ChromeVersions flattened in a stable order.
var allVersions = func() []string {
	majors := make([]string, 0, len(ChromeVersions))
	for major := range ChromeVersions {
		majors = append(majors, major)
	}
	sort.Strings(majors)

	var out []string
	for _, major := range majors {
		out = append(out, ChromeVersions[major]...)
	}
	return out
}()

// RandomChromeVersion picks a release uniformly across every listed version.
func RandomChromeVersion() string {
	return allVersions[rand.IntN(len(allVersions))]
}

// UserAgent renders the Windows desktop Chrome user agent for version.
func UserAgent(version string) string {
	return fmt.Sprintf(userAgentTemplate, version)
}

// DefaultUserAgent returns a user agent with a random Chrome version.
func DefaultUserAgent() string {
	return UserAgent(RandomChromeVersion())
}
