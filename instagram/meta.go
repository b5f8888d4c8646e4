package instagram

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/leadscout/models"
)

const countToken = `([\d.,]+\s*(?:mil|mi|k|m)?)`

var (
	metaFollowers = regexp.MustCompile(`(?i)` + countToken + `\s+(?:followers|seguidores)`)
	metaFollowing = regexp.MustCompile(`(?i)` + countToken + `\s+(?:following|seguindo)`)
	metaPosts     = regexp.MustCompile(`(?i)` + countToken + `\s+(?:posts|publicações|publicacoes)`)
	metaIdentity  = regexp.MustCompile(`(?i)\b(?:from|de)\s+(.+?)\s+\(@([A-Za-z0-9._]+)\)`)
	metaBio       = regexp.MustCompile(`(?s):\s*"(.+)"\s*$`)
)

// ParseProfileMeta reads a profile from the meta tags Instagram serves to
// crawlers, e.g. "1.234 seguidores, 56 seguindo, 78 publicações - Veja as
// fotos e vídeos do Instagram de Nome (@usuario)". It needs no JavaScript,
// so it also works on raw HTTP responses.
func ParseProfileMeta(html, profileURL string) (*models.Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProfileParse, "failed to parse profile HTML", err)
	}
	p, err := parseMeta(doc)
	if err != nil {
		if DetectLoginWall(doc) {
			return nil, models.NewScrapeError(models.ErrCodeLoginWall, "login wall is blocking the profile", nil)
		}
		return nil, err
	}
	p.BioLinks = extractBioLinks(doc)
	if len(p.BioLinks) > 0 {
		p.Link = p.BioLinks[0].URL
	}
	p.ProfileURL = profileURL
	p.ExtractedAt = time.Now().UTC()
	return p, nil
}

func parseMeta(doc *goquery.Document) (*models.Profile, error) {
	og := metaContent(doc, `meta[property="og:description"]`)
	desc := metaContent(doc, `meta[name="description"]`)
	if og == "" {
		og = desc
	}
	if og == "" {
		return nil, models.NewScrapeError(models.ErrCodeProfileParse, "profile has neither header nor description meta", nil)
	}

	p := &models.Profile{}
	if m := metaIdentity.FindStringSubmatch(og); m != nil {
		p.Name = strings.TrimSpace(m[1])
		p.Username = strings.ToLower(m[2])
	}
	if p.Username == "" {
		return nil, models.NewScrapeError(models.ErrCodeProfileParse, "no username in description meta", nil)
	}
	if m := metaFollowers.FindStringSubmatch(og); m != nil {
		p.Followers = ParseCount(m[1])
	}
	if m := metaFollowing.FindStringSubmatch(og); m != nil {
		p.Following = ParseCount(m[1])
	}
	if m := metaPosts.FindStringSubmatch(og); m != nil {
		p.Posts = ParseCount(m[1])
	}
	if m := metaBio.FindStringSubmatch(desc); m != nil {
		p.Bio = strings.TrimSpace(m[1])
	}
	return p, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
