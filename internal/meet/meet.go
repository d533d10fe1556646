// Package meet understands just enough of the Google Meet web application to
// automate it: meeting-code URLs, the ARIA labels and button texts of the
// join and device controls, and the display-mode marker telling an installed
// app window apart from an ordinary tab. The host page is an uncontrolled,
// mutating external resource, so nothing here caches DOM state; every lookup
// re-resolves against a fresh snapshot.
package meet

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Host is the meeting application host.
const Host = "meet.google.com"

// landingPath is the generic start page, which carries call-like markup
// without being a call.
const landingPath = "/landing"

// codeRe matches a meeting code like "abc-defg-hij".
var codeRe = regexp.MustCompile(`^[a-z]{3}-[a-z]{4}-[a-z]{3}$`)

// IsCode reports whether s is a bare meeting code.
func IsCode(s string) bool {
	return codeRe.MatchString(strings.ToLower(s))
}

// CodeFromURL extracts the meeting code from a meeting URL, or returns ""
// when the URL does not point at a specific meeting.
func CodeFromURL(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || !strings.EqualFold(u.Hostname(), Host) {
		return ""
	}
	return codeFromPath(u.Path)
}

func codeFromPath(path string) string {
	segment := strings.ToLower(strings.Trim(path, "/"))
	if codeRe.MatchString(segment) {
		return segment
	}
	return ""
}

// IsMeetingURL reports whether rawurl points at a specific meeting.
func IsMeetingURL(rawurl string) bool {
	return CodeFromURL(rawurl) != ""
}

// MatchesHost reports whether rawurl lives on the meeting application host,
// whether or not it points at a specific meeting.
func MatchesHost(rawurl string) bool {
	u, err := url.Parse(rawurl)
	return err == nil && strings.EqualFold(u.Hostname(), Host)
}

// IsLandingURL reports whether rawurl is the generic start page.
func IsLandingURL(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil || !strings.EqualFold(u.Hostname(), Host) {
		return false
	}
	return strings.TrimRight(u.Path, "/") == landingPath
}

// NormalizeTarget turns a meeting reference (a bare code, a "/path?query"
// pair or a meeting URL) into the canonical destination: an https URL on the
// Meet host with an authuser query parameter. The parameter is appended only
// when absent, and the rest of the query string is preserved byte for byte,
// so normalizing an already-normalized URL is the identity.
func NormalizeTarget(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if IsCode(ref) {
		return fmt.Sprintf("https://%s/%s?authuser=0", Host, strings.ToLower(ref)), nil
	}
	if strings.HasPrefix(ref, "/") {
		ref = fmt.Sprintf("https://%s%s", Host, ref)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid meeting reference %q: %w", ref, err)
	}
	if !strings.EqualFold(u.Hostname(), Host) {
		return "", fmt.Errorf("%q is not a %s URL", ref, Host)
	}
	code := codeFromPath(u.Path)
	if code == "" {
		return "", fmt.Errorf("%q does not point at a meeting", ref)
	}

	base := fmt.Sprintf("https://%s/%s", Host, code)
	switch {
	case u.RawQuery == "":
		return base + "?authuser=0", nil
	case !hasAuthuser(u.RawQuery):
		return base + "?" + u.RawQuery + "&authuser=0", nil
	default:
		return base + "?" + u.RawQuery, nil
	}
}

func hasAuthuser(rawQuery string) bool {
	for _, pair := range strings.Split(rawQuery, "&") {
		key, _, _ := strings.Cut(pair, "=")
		if key == "authuser" {
			return true
		}
	}
	return false
}
