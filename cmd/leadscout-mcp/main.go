package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the leadscout API error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type phoneDetail struct {
	PhonePtBr  string   `json:"phone_pt_br"`
	PhoneE164  string   `json:"phone_e164"`
	Confidence string   `json:"confidence"`
	Sources    []string `json:"sources"`
}

// phoneSet mirrors the phone extraction output.
type phoneSet struct {
	Details           []phoneDetail `json:"details"`
	PrimaryPtBr       string        `json:"primary_pt_br"`
	PrimaryE164       string        `json:"primary_e164"`
	PrimaryConfidence string        `json:"primary_confidence"`
	Error             *apiError     `json:"error"`
}

// searchJob mirrors GET /api/v1/search/:id.
type searchJob struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	Error  *apiError `json:"error"`
	Output *struct {
		Query        string `json:"query"`
		TotalResults int    `json:"total_results"`
		Results      []struct {
			Title     string `json:"title"`
			URL       string `json:"url"`
			Status    string `json:"status"`
			Instagram *struct {
				Username  string   `json:"username"`
				Name      string   `json:"name"`
				Followers int      `json:"followers"`
				Phones    phoneSet `json:"phones"`
			} `json:"instagram"`
		} `json:"results"`
	} `json:"output"`
	Summary *struct {
		UniquePhones       int `json:"unique_phones"`
		ProfilesWithPhones int `json:"profiles_with_phones"`
		TopAreaCodes       []struct {
			DDD   string `json:"ddd"`
			Count int    `json:"count"`
		} `json:"top_area_codes"`
	} `json:"summary"`
}

func main() {
	apiURL := os.Getenv("LEADSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("LEADSCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "LEADSCOUT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"leadscout",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_leads",
		mcp.WithDescription("Run a Google dork (e.g. site:instagram.com \"dentista\" \"Recife\") in the leadscout browser, visit the Instagram profiles found and return their Brazilian phone numbers. Takes minutes; a person may need to solve a captcha on the server."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The Google query to run"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Result pages to scrape (default: 3, max: 10)"),
		),
		mcp.WithNumber("profile_cap",
			mcp.Description("Unique profiles to visit (default: 25)"),
		),
		mcp.WithBoolean("only_with_phones",
			mcp.Description("Return only rows where a phone was found"),
		),
	)
	s.AddTool(searchTool, handleSearchLeads(apiURL, apiKey))

	phonesTool := mcp.NewTool("extract_phones",
		mcp.WithDescription("Extract Brazilian phone numbers from a profile bio and its links (wa.me, api.whatsapp.com, tel: and redirect wrappers). Each number comes with a confidence and the places it was found."),
		mcp.WithString("bio",
			mcp.Description("Bio text to scan"),
		),
		mcp.WithArray("links",
			mcp.Description("Bio links to scan; the first is treated as the main profile link"),
		),
	)
	s.AddTool(phonesTool, handleExtractPhones(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the leadscout API and returns the status and body.
func apiDo(ctx context.Context, client *http.Client, method, url, apiKey string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// pollJob polls a search job until it completes or fails, or ctx ends.
func pollJob(ctx context.Context, client *http.Client, apiURL, apiKey, id string) (*searchJob, error) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			_, body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/search/"+id, apiKey, nil)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			var job searchJob
			if err := json.Unmarshal(body, &job); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if job.Status == "completed" || job.Status == "failed" {
				return &job, nil
			}
		}
	}
}

func handleSearchLeads(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		payload := map[string]interface{}{
			"query":            query,
			"max_pages":        int(request.GetFloat("max_pages", 0)),
			"profile_cap":      int(request.GetFloat("profile_cap", 0)),
			"only_with_phones": request.GetBool("only_with_phones", false),
		}

		status, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/search", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search request failed: %v", err)), nil
		}
		var created searchJob
		if err := json.Unmarshal(body, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse search response: %v", err)), nil
		}
		if status != http.StatusAccepted || created.ID == "" {
			return mcp.NewToolResultError(errorText("search job creation failed", created.Error)), nil
		}

		job, err := pollJob(ctx, client, apiURL, apiKey, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling search job failed: %v", err)), nil
		}
		if job.Output == nil {
			return mcp.NewToolResultError(errorText("search failed", job.Error)), nil
		}
		return mcp.NewToolResultText(formatJob(job)), nil
	}
}

func formatJob(job *searchJob) string {
	var sb strings.Builder
	out := job.Output
	sb.WriteString(fmt.Sprintf("Search %q: %s, %d results\n", out.Query, job.Status, out.TotalResults))
	if job.Error != nil {
		sb.WriteString(fmt.Sprintf("Stopped early: [%s] %s\n", job.Error.Code, job.Error.Message))
	}
	if s := job.Summary; s != nil {
		sb.WriteString(fmt.Sprintf("Profiles with phones: %d, unique phones: %d\n", s.ProfilesWithPhones, s.UniquePhones))
		if len(s.TopAreaCodes) > 0 {
			codes := make([]string, 0, len(s.TopAreaCodes))
			for _, c := range s.TopAreaCodes {
				codes = append(codes, fmt.Sprintf("%s (%d)", c.DDD, c.Count))
			}
			sb.WriteString("Top DDDs: " + strings.Join(codes, ", ") + "\n")
		}
	}
	sb.WriteString("\n")

	for i, r := range out.Results {
		ig := r.Instagram
		if ig == nil || len(ig.Phones.Details) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%d] @%s (%s), %d followers\n    %s\n", i+1, ig.Username, ig.Name, ig.Followers, r.URL))
		for _, d := range ig.Phones.Details {
			sb.WriteString(fmt.Sprintf("    %s  %s  via %s\n", d.PhonePtBr, d.Confidence, strings.Join(d.Sources, ", ")))
		}
	}
	return sb.String()
}

func handleExtractPhones(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		bio := request.GetString("bio", "")
		links := request.GetStringSlice("links", nil)
		if strings.TrimSpace(bio) == "" && len(links) == 0 {
			return mcp.NewToolResultError("bio or links is required"), nil
		}

		payload := map[string]interface{}{"bio": bio}
		if len(links) > 0 {
			payload["link"] = links[0]
			payload["bio_links"] = links[1:]
		}

		_, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/phones/extract", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}
		var set phoneSet
		if err := json.Unmarshal(body, &set); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if set.Error != nil {
			return mcp.NewToolResultError(errorText("extract failed", set.Error)), nil
		}
		if len(set.Details) == 0 {
			return mcp.NewToolResultText("No Brazilian phone numbers found."), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Primary: %s (%s)\n\n", set.PrimaryPtBr, set.PrimaryConfidence))
		for _, d := range set.Details {
			sb.WriteString(fmt.Sprintf("%s  %s  %s  via %s\n", d.PhonePtBr, d.PhoneE164, d.Confidence, strings.Join(d.Sources, ", ")))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func errorText(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
