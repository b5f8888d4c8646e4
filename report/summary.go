// Package report derives statistics from a search run and writes it out
// as JSON, CSV and terminal tables.
package report

import (
	"sort"

	"github.com/use-agent/leadscout/models"
	"github.com/use-agent/leadscout/phone"
)

const topAreaCodes = 5

// AreaCount is how many distinct phones share one DDD.
type AreaCount struct {
	DDD   string `json:"ddd"`
	Count int    `json:"count"`
}

// Summary is recomputed from the result rows; it is never stored.
type Summary struct {
	TotalResults       int                   `json:"total_results"`
	ByStatus           map[models.Status]int `json:"by_status"`
	UniquePhones       int                   `json:"unique_phones"`
	ProfilesWithPhones int                   `json:"profiles_with_phones"`
	TopAreaCodes       []AreaCount           `json:"top_area_codes"`
}

// Summarize counts rows by status and phones by area code.
func Summarize(results []*models.SearchResult) Summary {
	s := Summary{
		TotalResults: len(results),
		ByStatus:     make(map[models.Status]int),
	}
	phones := make(map[string]struct{})
	byDDD := make(map[string]int)

	for _, r := range results {
		s.ByStatus[r.Status]++
		if !r.HasPhones() {
			continue
		}
		s.ProfilesWithPhones++
		for _, d := range r.Instagram.Phones.Details {
			if _, seen := phones[d.PhoneE164]; seen {
				continue
			}
			phones[d.PhoneE164] = struct{}{}
			if ddd := phone.AreaCode(d.PhoneE164); ddd != "" {
				byDDD[ddd]++
			}
		}
	}
	s.UniquePhones = len(phones)

	for ddd, n := range byDDD {
		s.TopAreaCodes = append(s.TopAreaCodes, AreaCount{DDD: ddd, Count: n})
	}
	sort.Slice(s.TopAreaCodes, func(i, j int) bool {
		a, b := s.TopAreaCodes[i], s.TopAreaCodes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.DDD < b.DDD
	})
	if len(s.TopAreaCodes) > topAreaCodes {
		s.TopAreaCodes = s.TopAreaCodes[:topAreaCodes]
	}
	return s
}

// OnlyWithPhones returns a copy of out keeping only rows with phones.
// TotalResults still counts every scraped row.
func OnlyWithPhones(out *models.SearchOutput) *models.SearchOutput {
	cp := *out
	cp.Results = make([]*models.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		if r.HasPhones() {
			cp.Results = append(cp.Results, r)
		}
	}
	return &cp
}
