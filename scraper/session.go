package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// Platforms whose cookies are persisted between runs.
const (
	PlatformGoogle    = "google"
	PlatformInstagram = "instagram"
)

var platformDomains = map[string][]string{
	PlatformGoogle:    {"google.com", "google.com.br"},
	PlatformInstagram: {"instagram.com"},
}

type sessionFile struct {
	CreatedAt time.Time              `json:"created_at"`
	Cookies   []*proto.NetworkCookie `json:"cookies"`
}

// SessionStore keeps one cookie file per platform and drops files older
// than the TTL.
type SessionStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewSessionStore stores sessions under dir.
func NewSessionStore(dir string, ttl time.Duration) *SessionStore {
	return &SessionStore{dir: dir, ttl: ttl, now: time.Now}
}

func (s *SessionStore) path(platform string) string {
	return filepath.Join(s.dir, platform+"-session.json")
}

// Load returns the saved cookies of platform. Missing, unreadable and
// expired sessions all yield nil; expired files are removed.
func (s *SessionStore) Load(platform string) []*proto.NetworkCookie {
	data, err := os.ReadFile(s.path(platform))
	if err != nil {
		return nil
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if s.now().Sub(f.CreatedAt) > s.ttl {
		_ = s.Clear(platform)
		return nil
	}
	return f.Cookies
}

// Save writes the cookies that belong to platform.
func (s *SessionStore) Save(platform string, cookies []*proto.NetworkCookie) error {
	own := filterCookies(cookies, platformDomains[platform])
	if len(own) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	data, err := json.MarshalIndent(sessionFile{CreatedAt: s.now().UTC(), Cookies: own}, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	if err := os.WriteFile(s.path(platform), data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}

// Clear deletes the saved session of platform.
func (s *SessionStore) Clear(platform string) error {
	err := os.Remove(s.path(platform))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func filterCookies(cookies []*proto.NetworkCookie, domains []string) []*proto.NetworkCookie {
	var out []*proto.NetworkCookie
	for _, c := range cookies {
		host := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		for _, d := range domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// sessionCookie is the Instagram login cookie built from INSTAGRAM_SESSIONID.
func sessionCookie(id string) *proto.NetworkCookieParam {
	return &proto.NetworkCookieParam{
		Name:     "sessionid",
		Value:    id,
		Domain:   ".instagram.com",
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
	}
}
