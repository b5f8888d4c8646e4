package models

import "time"

// SourceGoogle tags every row scraped from Google organic results.
const SourceGoogle = "google"

// Status is the enrichment state of one search result row.
type Status string

const (
	StatusPending               Status = "pending"
	StatusNotInstagram          Status = "not_instagram"
	StatusInstagramOK           Status = "instagram_ok"
	StatusInstagramFailed       Status = "instagram_failed"
	StatusDuplicateInstagram    Status = "duplicate_instagram"
	StatusInstagramSkippedLimit Status = "instagram_skipped_limit"
)

// AllStatuses lists every status in lifecycle order (used by reports).
var AllStatuses = []Status{
	StatusPending,
	StatusNotInstagram,
	StatusInstagramOK,
	StatusInstagramFailed,
	StatusDuplicateInstagram,
	StatusInstagramSkippedLimit,
}

// SearchResult is one organic result row.
type SearchResult struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Status      Status    `json:"status"`
	Page        int       `json:"page"`
	ExtractedAt time.Time `json:"extracted_at"`

	// Instagram is set only when Status is StatusInstagramOK.
	Instagram *InstagramData `json:"instagram,omitempty"`
}

// HasPhones reports whether the row carries at least one extracted phone.
func (r *SearchResult) HasPhones() bool {
	return r.Instagram != nil && len(r.Instagram.Phones.Details) > 0
}

// BioLink is an external link listed on a profile.
type BioLink struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
}

// Profile is what a profile fetcher returns for one profile page.
type Profile struct {
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Posts       int       `json:"posts"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	Bio         string    `json:"bio"`
	Link        string    `json:"link,omitempty"`
	BioLinks    []BioLink `json:"bio_links,omitempty"`
	ProfileURL  string    `json:"profile_url"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// InstagramData is the enrichment copied onto a result row.
type InstagramData struct {
	Profile
	Phones PhoneSet `json:"phones"`
}

// SearchOutput is the final report of one run.
type SearchOutput struct {
	Query        string          `json:"query"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int             `json:"total_results"`
	ExtractedAt  time.Time       `json:"extracted_at"`
	Enrichment   *EnrichStats    `json:"enrichment,omitempty"`
	Results      []*SearchResult `json:"results"`
}

// EnrichStats counts what one enrichment pass did. Profiles counts
// Instagram rows; Fetched counts unique usernames requested.
type EnrichStats struct {
	Profiles   int `json:"profiles"`
	Fetched    int `json:"fetched"`
	OK         int `json:"ok"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}
