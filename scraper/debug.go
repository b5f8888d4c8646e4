package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SetDebugDir makes failed profile fetches leave the rendered HTML and a
// screenshot in dir. An empty dir turns dumps off.
func (s *Scraper) SetDebugDir(dir string) {
	s.debugDir = dir
}

// debugBase is the file name prefix for dumps of profileURL.
func debugBase(profileURL string, now time.Time) string {
	name := strings.TrimPrefix(profileURL, "https://")
	name = strings.TrimPrefix(name, "www.")
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "page"
	}
	return fmt.Sprintf("%s-%s", name, now.UTC().Format("20060102T150405"))
}

// dumpDebug writes page's HTML and a full-page screenshot next to each
// other. The fetch ctx may already be done, so the dump gets its own.
func (s *Scraper) dumpDebug(ctx context.Context, page *Page, profileURL string, cause error) {
	if s.debugDir == "" {
		return
	}
	if err := os.MkdirAll(s.debugDir, 0o755); err != nil {
		slog.Warn("debug dump skipped", "dir", s.debugDir, "error", err)
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	base := filepath.Join(s.debugDir, debugBase(profileURL, time.Now()))
	if html, err := page.HTML(dctx); err == nil {
		if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
			slog.Warn("debug html not written", "error", err)
		}
	}
	if png, err := page.Rod().Context(dctx).Screenshot(true, nil); err == nil {
		if err := os.WriteFile(base+".png", png, 0o644); err != nil {
			slog.Warn("debug screenshot not written", "error", err)
		}
	}
	slog.Info("profile debug dump written", "base", base, "cause", cause)
}
