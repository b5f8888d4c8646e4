package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/use-agent/leadscout/models"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeQuery turns a query into a file-name fragment of at most 50
// characters.
func SanitizeQuery(query string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(query), "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	if s == "" {
		s = "query"
	}
	return s
}

// FileName is the base name, without extension, for the files of one run.
func FileName(out *models.SearchOutput, at time.Time) string {
	return fmt.Sprintf("google-%s-%d", SanitizeQuery(out.Query), at.UnixMilli())
}

// WriteJSON writes out as indented JSON under dir and returns the path.
func WriteJSON(dir string, out *models.SearchOutput, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	path := filepath.Join(dir, FileName(out, at)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// csvRow is one flattened result row.
type csvRow struct {
	Title       string `csv:"title"`
	URL         string `csv:"url"`
	Description string `csv:"description"`
	Source      string `csv:"source"`
	Status      string `csv:"status"`
	Page        int    `csv:"page"`
	ExtractedAt string `csv:"extractedAt"`

	Username  string `csv:"instagramUsername"`
	Name      string `csv:"instagramName"`
	Followers int    `csv:"instagramFollowers"`
	Bio       string `csv:"instagramBio"`
	Link      string `csv:"instagramLink"`

	PhonesCount       int    `csv:"instagramPhonesCount"`
	Phones            string `csv:"instagramPhones"`
	PhonesE164        string `csv:"instagramPhonesE164"`
	PhonesConfidence  string `csv:"instagramPhonesConfidence"`
	PhonesSources     string `csv:"instagramPhonesSources"`
	PrimaryPhone      string `csv:"instagramPrimaryPhone"`
	PrimaryPhoneE164  string `csv:"instagramPrimaryPhoneE164"`
	PrimaryConfidence string `csv:"instagramPrimaryConfidence"`
}

func toCSVRow(r *models.SearchResult) (csvRow, error) {
	row := csvRow{
		Title:       r.Title,
		URL:         r.URL,
		Description: r.Description,
		Source:      r.Source,
		Status:      string(r.Status),
		Page:        r.Page,
		ExtractedAt: r.ExtractedAt.UTC().Format(time.RFC3339),
	}
	ig := r.Instagram
	if ig == nil {
		return row, nil
	}
	row.Username = ig.Username
	row.Name = ig.Name
	row.Followers = ig.Followers
	row.Bio = ig.Bio
	row.Link = ig.Link

	ps := ig.Phones
	row.PhonesCount = len(ps.Details)
	row.Phones = strings.Join(ps.PhonesPtBr, " | ")
	row.PhonesE164 = strings.Join(ps.PhonesE164, " | ")
	row.PrimaryPhone = ps.PrimaryPtBr
	row.PrimaryPhoneE164 = ps.PrimaryE164
	row.PrimaryConfidence = string(ps.PrimaryConfidence)

	if len(ps.Details) > 0 {
		conf := make(map[string]models.Confidence, len(ps.Details))
		sources := make(map[string][]string, len(ps.Details))
		for _, d := range ps.Details {
			conf[d.PhoneE164] = d.Confidence
			sources[d.PhoneE164] = d.Sources
		}
		c, err := json.Marshal(conf)
		if err != nil {
			return row, err
		}
		s, err := json.Marshal(sources)
		if err != nil {
			return row, err
		}
		row.PhonesConfidence = string(c)
		row.PhonesSources = string(s)
	}
	return row, nil
}

// WriteCSV writes one header line and one line per result.
func WriteCSV(w io.Writer, results []*models.SearchResult) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(results) == 0 {
		if err := enc.EncodeHeader(csvRow{}); err != nil {
			return fmt.Errorf("encode csv header: %w", err)
		}
	}
	for _, r := range results {
		row, err := toCSVRow(r)
		if err != nil {
			return fmt.Errorf("flatten %s: %w", r.URL, err)
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV next to the JSON output and returns the path.
func WriteCSVFile(dir string, out *models.SearchOutput, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(out, at)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	if err := WriteCSV(f, out.Results); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
