package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/leadscout/models"
)

func sampleOutput(query string) *models.SearchOutput {
	return &models.SearchOutput{
		Query:        query,
		TotalPages:   1,
		TotalResults: 2,
		ExtractedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Results: []*models.SearchResult{
			{
				URL:    "https://www.instagram.com/padaria/",
				Title:  "Padaria (@padaria)",
				Status: models.StatusInstagramOK,
				Instagram: &models.InstagramData{
					Profile: models.Profile{Username: "padaria", Followers: 1200},
					Phones: models.PhoneSet{
						PrimaryE164:       "+5511999990001",
						PrimaryConfidence: models.ConfidenceHigh,
						Details: []models.PhoneDetail{
							{PhoneE164: "+5511999990001", Confidence: models.ConfidenceHigh, Sources: []string{"wa_me"}},
						},
					},
				},
			},
			{URL: "https://example.com/", Title: "Example", Status: models.StatusNotInstagram},
		},
	}
}

func TestStore_SaveOutputIgnoresDuplicates(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "db", "leads.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	n, err := s.SaveOutput(ctx, sampleOutput("padaria"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SaveOutput(ctx, sampleOutput("padaria"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.SaveOutput(ctx, sampleOutput("confeitaria"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var searches int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM searches`).Scan(&searches))
	assert.Equal(t, 3, searches)
}

func TestStore_Phones(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.SaveOutput(ctx, sampleOutput("padaria"))
	require.NoError(t, err)

	leads, err := s.Phones(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "padaria", leads[0].Username)
	assert.Equal(t, "+5511999990001", leads[0].PrimaryPhone)
	assert.Equal(t, models.ConfidenceHigh, leads[0].PrimaryConfidence)
}
