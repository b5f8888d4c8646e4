package search

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/simhash"
)

const (
	minDescriptionLen = 50
	maxDescriptionLen = 300
)

var searchEngineHost = regexp.MustCompile(`(^|\.)google\.[a-z]{2,3}(\.[a-z]{2})?$`)

// RowSelectors locate organic result rows in a results page.
type RowSelectors struct {
	Container string
	Item      string
	Title     string
	Link      string
}

// ParseResults turns a results page into pending rows. Rows need both a
// heading and an absolute http(s) link; links to the search engine itself
// or matching an ignore pattern are dropped, and a URL is kept once per
// page.
func ParseResults(html string, sel RowSelectors, ignore []string, page int, now time.Time) ([]*models.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	container := doc.Find(sel.Container).First()
	if container.Length() == 0 {
		return nil, nil
	}

	var rows []*models.SearchResult
	seen := make(map[string]struct{})

	container.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(sel.Title).First().Text())
		href, ok := item.Find(sel.Link).First().Attr("href")
		if title == "" || !ok {
			return
		}
		href = strings.TrimSpace(href)
		if !keepLink(href, ignore) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		rows = append(rows, &models.SearchResult{
			Title:       title,
			URL:         href,
			Description: describe(item, sel.Title, title),
			Source:      models.SourceGoogle,
			Status:      models.StatusPending,
			Page:        page,
			ExtractedAt: now,
		})
	})
	return rows, nil
}

func keepLink(href string, ignore []string) bool {
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if searchEngineHost.MatchString(strings.ToLower(u.Hostname())) {
		return false
	}
	for _, p := range ignore {
		if strings.Contains(href, p) {
			return false
		}
	}
	return true
}

// describe returns the first span or div with a long enough text that is
// not the title and does not wrap it.
func describe(item *goquery.Selection, titleSel, title string) string {
	var desc string
	item.Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find(titleSel).Length() > 0 {
			return true
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if utf8.RuneCountInString(text) <= minDescriptionLen || text == title {
			return true
		}
		desc = truncateRunes(text, maxDescriptionLen)
		return false
	})
	return desc
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// pageFingerprint summarises a page by its result URLs so a page that
// repeats the previous one can be recognised. A page without rows falls
// back to its DOM structure.
func pageFingerprint(rows []*models.SearchResult, html string) uint64 {
	if len(rows) == 0 {
		return simhash.FingerprintDOM(html)
	}
	urls := make([]string, 0, len(rows))
	for _, r := range rows {
		urls = append(urls, r.URL)
	}
	return simhash.Fingerprint(strings.Join(urls, " "))
}
