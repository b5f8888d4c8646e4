// Package instagram recognises Instagram profile URLs and parses public
// profile pages.
package instagram

import (
	"net/url"
	"regexp"
	"strings"
)

var profileDomains = []string{
	"instagram.com",
	"www.instagram.com",
	"m.instagram.com",
	"instagr.am",
	"www.instagr.am",
}

// nonProfilePaths are first path segments that never name a user.
var nonProfilePaths = map[string]struct{}{
	"p":         {},
	"reel":      {},
	"reels":     {},
	"stories":   {},
	"explore":   {},
	"accounts":  {},
	"direct":    {},
	"tv":        {},
	"channel":   {},
	"saved":     {},
	"tagged":    {},
	"guide":     {},
	"about":     {},
	"legal":     {},
	"developer": {},
	"web":       {},
	"challenge": {},
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// ProfileURL identifies one profile.
type ProfileURL struct {
	// Username is lowercase; Instagram usernames are case-insensitive.
	Username      string
	NormalizedURL string
}

// ParseProfileURL reports whether raw points at a profile page and, if so,
// returns its canonical username and normalized URL.
func ParseProfileURL(raw string) (ProfileURL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ProfileURL{}, false
	}

	if !IsInstagramHost(u.Hostname()) {
		return ProfileURL{}, false
	}

	var first string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			first = seg
			break
		}
	}
	if first == "" {
		return ProfileURL{}, false
	}
	if _, reserved := nonProfilePaths[strings.ToLower(first)]; reserved {
		return ProfileURL{}, false
	}
	if strings.HasPrefix(first, ".") || !usernamePattern.MatchString(first) {
		return ProfileURL{}, false
	}

	username := strings.ToLower(first)
	return ProfileURL{
		Username:      username,
		NormalizedURL: NormalizeProfileURL(username),
	}, true
}

// NormalizeProfileURL builds the URL used to fetch a profile.
func NormalizeProfileURL(username string) string {
	return "https://www.instagram.com/" + username + "/?hl=pt"
}

// IsInstagramHost reports whether host belongs to Instagram.
func IsInstagramHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range profileDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
