package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/use-agent/leadscout/metrics"
	"github.com/use-agent/leadscout/models"
)

// RenderSummary renders the run summary as a table.
func RenderSummary(out *models.SearchOutput, s Summary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Busca: %s", out.Query))
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRow(table.Row{"results", s.TotalResults})
	for _, st := range models.AllStatuses {
		if n := s.ByStatus[st]; n > 0 {
			t.AppendRow(table.Row{string(st), n})
		}
	}
	if e := out.Enrichment; e != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"profiles fetched", e.Fetched})
		t.AppendRow(table.Row{"profiles skipped (cap)", e.Skipped})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"profiles with phones", s.ProfilesWithPhones})
	t.AppendRow(table.Row{"unique phones", s.UniquePhones})
	if len(s.TopAreaCodes) > 0 {
		t.AppendRow(table.Row{"top DDDs", formatAreaCodes(s.TopAreaCodes)})
	}
	return t.Render()
}

func formatAreaCodes(codes []AreaCount) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, fmt.Sprintf("%s (%d)", c.DDD, c.Count))
	}
	return strings.Join(parts, ", ")
}

// RenderPhones lists every row with phones and its primary number.
func RenderPhones(results []*models.SearchResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Username", "Primary", "Confidence", "All"})
	for _, r := range results {
		if !r.HasPhones() {
			continue
		}
		ps := r.Instagram.Phones
		t.AppendRow(table.Row{
			"@" + r.Instagram.Username,
			ps.PrimaryPtBr,
			string(ps.PrimaryConfidence),
			strings.Join(ps.PhonesPtBr, ", "),
		})
	}
	return t.Render()
}

// RenderProfile renders one enriched profile and every phone found on it.
func RenderProfile(d *models.InstagramData) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("@" + d.Username)
	t.AppendRow(table.Row{"name", d.Name})
	t.AppendRow(table.Row{"posts", d.Posts})
	t.AppendRow(table.Row{"followers", d.Followers})
	t.AppendRow(table.Row{"following", d.Following})
	t.AppendRow(table.Row{"bio", d.Bio})
	if d.Link != "" {
		t.AppendRow(table.Row{"link", d.Link})
	}
	for _, l := range d.BioLinks {
		t.AppendRow(table.Row{"bio link", l.URL})
	}
	t.AppendSeparator()
	if len(d.Phones.Details) == 0 {
		t.AppendRow(table.Row{"phones", "none"})
	}
	for _, ph := range d.Phones.Details {
		t.AppendRow(table.Row{
			"phone",
			fmt.Sprintf("%s  %s  %s", ph.PhonePtBr, ph.Confidence, strings.Join(ph.Sources, ", ")),
		})
	}
	return t.Render()
}

// RenderMetrics renders per-operation timings.
func RenderMetrics(stats []metrics.OpStats, elapsed time.Duration) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Operation", "Count", "Errors", "Avg", "Max"})
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.Name,
			s.Count,
			s.Errors,
			s.Average().Round(time.Millisecond),
			s.Max.Round(time.Millisecond),
		})
	}
	t.AppendFooter(table.Row{"total", "", "", "", elapsed.Round(time.Millisecond)})
	return t.Render()
}
