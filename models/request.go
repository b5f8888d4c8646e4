package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the Google dork, e.g. `site:instagram.com "dentista" SP`. Required.
	Query string `json:"query" binding:"required"`

	// MaxPages bounds pagination. Default: server config (3). Max: 10.
	MaxPages int `json:"max_pages,omitempty" binding:"omitempty,min=1,max=10"`

	// ProfileCap bounds how many unique profiles are fetched. Default: 25.
	ProfileCap int `json:"profile_cap,omitempty" binding:"omitempty,min=1,max=200"`

	// OnlyWithPhones drops rows without phones from the job output.
	OnlyWithPhones bool `json:"only_with_phones,omitempty"`
}

// PhonesRequest is the payload for POST /api/v1/phones/extract.
type PhonesRequest struct {
	Bio      string   `json:"bio"`
	Link     string   `json:"link,omitempty"`
	BioLinks []string `json:"bio_links,omitempty"`
}
