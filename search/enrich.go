package search

import (
	"context"
	"log/slog"

	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/phone"
)

// enrich resolves every pending row in order. The first row of a username
// gets the fetch; later rows of the same username become duplicates. Once
// limit unique profiles have been fetched, remaining profile rows are
// marked skipped.
func (a *Aggregator) enrich(ctx context.Context, results []*models.SearchResult, limit int) models.EnrichStats {
	var st models.EnrichStats
	seen := make(map[string]struct{})

	for _, r := range results {
		if r.Status != models.StatusPending {
			continue
		}
		ref, ok := instagram.ParseProfileURL(r.URL)
		if !ok {
			r.Status = models.StatusNotInstagram
			continue
		}
		st.Profiles++

		if _, dup := seen[ref.Username]; dup {
			r.Status = models.StatusDuplicateInstagram
			st.Duplicates++
			continue
		}
		if st.Fetched >= limit {
			r.Status = models.StatusInstagramSkippedLimit
			st.Skipped++
			continue
		}

		if st.Fetched > 0 {
			if err := a.sleep(ctx, a.cfg.ProfileDelay+a.jitter(a.cfg.ProfileJitter)); err != nil {
				break
			}
		}
		seen[ref.Username] = struct{}{}
		st.Fetched++

		data, err := a.fetch(ctx, ref)
		if err != nil {
			r.Status = models.StatusInstagramFailed
			st.Failed++
			slog.Warn("profile enrichment failed", "username", ref.Username, "code", models.ErrorCode(err), "error", err)
			continue
		}
		r.Instagram = data
		r.Status = models.StatusInstagramOK
		st.OK++
		slog.Info("profile enriched", "username", ref.Username, "phones", len(data.Phones.Details))
	}

	if st.Profiles == 0 {
		slog.Info("no instagram profiles among the results")
	} else {
		slog.Info("enrichment finished",
			"profiles", st.Profiles, "fetched", st.Fetched, "ok", st.OK,
			"failed", st.Failed, "duplicates", st.Duplicates, "skipped", st.Skipped)
	}
	return st
}

func (a *Aggregator) fetch(ctx context.Context, ref instagram.ProfileURL) (*models.InstagramData, error) {
	done := a.metrics.Start("profile")
	p, err := a.profiles.FetchProfile(ctx, ref.NormalizedURL)
	if err == nil && p == nil {
		err = models.NewScrapeError(models.ErrCodeProfileParse, "no profile on page", nil)
	}
	done(err)
	if err != nil {
		return nil, err
	}

	if p.Username == "" {
		p.Username = ref.Username
	}
	if p.ProfileURL == "" {
		p.ProfileURL = ref.NormalizedURL
	}
	return Enrichment(p), nil
}

// Enrichment runs phone extraction over a fetched profile.
func Enrichment(p *models.Profile) *models.InstagramData {
	links := make([]string, 0, len(p.BioLinks))
	for _, l := range p.BioLinks {
		links = append(links, l.URL)
	}
	return &models.InstagramData{
		Profile: *p,
		Phones: phone.Extract(phone.Input{
			Bio:      p.Bio,
			Link:     p.Link,
			BioLinks: links,
		}),
	}
}
