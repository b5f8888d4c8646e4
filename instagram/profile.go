package instagram

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/leadscout/models"
)

// Selectors shared with the browser fetcher.
const (
	HeaderSelector      = "header section"
	CloseDialogSelector = `button[aria-label="Fechar"], button[aria-label="Close"]`
)

var trailingMore = regexp.MustCompile(`\.\.\.?\s*mais\s*$`)

// ParseProfileHTML extracts profile fields from a rendered profile page.
// The header layout is four child divs: username, display name, counters
// and bio. When the header is missing or unreadable, the og:description
// meta tag is used instead.
func ParseProfileHTML(html, profileURL string) (*models.Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProfileParse, "failed to parse profile HTML", err)
	}

	p := parseHeader(doc)
	if p == nil || p.Username == "" {
		meta, metaErr := parseMeta(doc)
		if metaErr != nil {
			if DetectLoginWall(doc) {
				return nil, models.NewScrapeError(models.ErrCodeLoginWall, "login wall is blocking the profile", nil)
			}
			return nil, metaErr
		}
		if p == nil {
			p = meta
		} else {
			mergeMissing(p, meta)
		}
	}

	p.BioLinks = extractBioLinks(doc)
	if len(p.BioLinks) > 0 && p.Link == "" {
		p.Link = p.BioLinks[0].URL
	}
	p.ProfileURL = profileURL
	p.ExtractedAt = time.Now().UTC()
	return p, nil
}

func parseHeader(doc *goquery.Document) *models.Profile {
	section := doc.Find("header").First().Find("section").First()
	if section.Length() == 0 {
		return nil
	}
	divs := section.ChildrenFiltered("div")
	if divs.Length() < 4 {
		return nil
	}

	p := &models.Profile{
		Username: strings.TrimSpace(divs.Eq(0).Find("h2").First().Text()),
		Name:     strings.TrimSpace(divs.Eq(1).Find("span").First().Text()),
	}

	divs.Eq(2).Find("ul li").Each(func(i int, li *goquery.Selection) {
		n := ParseCount(li.Text())
		switch i {
		case 0:
			p.Posts = n
		case 1:
			p.Followers = n
		case 2:
			p.Following = n
		}
	})

	bio := strings.TrimSpace(divs.Eq(3).Find("div").First().Find("span").First().Text())
	p.Bio = strings.TrimSpace(trailingMore.ReplaceAllString(bio, ""))
	return p
}

// extractBioLinks collects external links from the profile header,
// unwrapping Instagram's l.instagram.com redirector.
func extractBioLinks(doc *goquery.Document) []models.BioLink {
	var links []models.BioLink
	seen := make(map[string]struct{})

	doc.Find("header a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		target := unwrapRedirect(href)
		if target == "" {
			return
		}
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}
		links = append(links, models.BioLink{
			URL:  target,
			Text: strings.TrimSpace(a.Text()),
		})
	})
	return links
}

// unwrapRedirect returns the external destination of href, or "" for
// links that stay on Instagram.
func unwrapRedirect(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "l.instagram.com" {
		if dest := u.Query().Get("u"); dest != "" {
			return dest
		}
		return ""
	}
	if IsInstagramHost(host) || strings.HasSuffix(host, "facebook.com") {
		return ""
	}
	return u.String()
}

func mergeMissing(dst, src *models.Profile) {
	if dst.Username == "" {
		dst.Username = src.Username
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Posts == 0 {
		dst.Posts = src.Posts
	}
	if dst.Followers == 0 {
		dst.Followers = src.Followers
	}
	if dst.Following == 0 {
		dst.Following = src.Following
	}
	if dst.Bio == "" {
		dst.Bio = src.Bio
	}
}

// DetectLoginWall reports whether the page is Instagram's login form
// instead of a profile.
func DetectLoginWall(doc *goquery.Document) bool {
	if doc.Find(HeaderSelector).Length() > 0 {
		return false
	}
	return doc.Find(`input[name="username"]`).Length() > 0 &&
		doc.Find(`input[name="password"]`).Length() > 0
}
