// Package phone extracts Brazilian phone numbers from profile bios and
// links and ranks them by how directly they point at a contact channel.
//
// Everything here is a pure function of its inputs: no network access,
// no shared state.
package phone

import (
	"fmt"
	"sort"
	"strings"

	"github.com/use-agent/leadscout/models"
)

// Input is the free text and links of one profile.
type Input struct {
	Bio      string
	Link     string
	BioLinks []string
}

// Extract harvests, normalizes, merges and ranks every phone number found
// in the input.
func Extract(in Input) models.PhoneSet {
	var cands []candidate

	if in.Bio != "" {
		cands = append(cands, harvestText(in.Bio, "bio_text", models.ConfidenceLow)...)
	}
	if in.Link != "" {
		cands = append(cands, harvestURL(in.Link, "profile_link", 0)...)
		cands = append(cands, harvestText(in.Link, "profile_link_text", models.ConfidenceMedium)...)
	}
	for i, link := range in.BioLinks {
		if strings.TrimSpace(link) == "" {
			continue
		}
		prefix := fmt.Sprintf("bio_link_%d", i+1)
		cands = append(cands, harvestURL(link, prefix, 0)...)
		cands = append(cands, harvestText(link, prefix+"_text", models.ConfidenceMedium)...)
	}

	return buildSet(Merge(normalize(cands)))
}

// Detection is a single normalized sighting of a number.
type Detection struct {
	E164       string
	Source     string
	Confidence models.Confidence
}

func normalize(cands []candidate) []Detection {
	out := make([]Detection, 0, len(cands))
	for _, c := range cands {
		e164, ok := NormalizeE164(c.raw)
		if !ok {
			continue
		}
		out = append(out, Detection{E164: e164, Source: c.source, Confidence: c.confidence})
	}
	return out
}

// Merge folds detections into one PhoneDetail per E.164 number, keeping
// the highest confidence and the union of sources. Output is sorted by
// E.164 and every source list is sorted.
func Merge(detections []Detection) []models.PhoneDetail {
	type state struct {
		confidence models.Confidence
		sources    map[string]struct{}
	}
	byNumber := make(map[string]*state)
	for _, d := range detections {
		st, ok := byNumber[d.E164]
		if !ok {
			st = &state{confidence: d.Confidence, sources: make(map[string]struct{})}
			byNumber[d.E164] = st
		}
		st.confidence = models.MaxConfidence(st.confidence, d.Confidence)
		st.sources[d.Source] = struct{}{}
	}

	details := make([]models.PhoneDetail, 0, len(byNumber))
	for e164, st := range byNumber {
		sources := make([]string, 0, len(st.sources))
		for s := range st.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		details = append(details, models.PhoneDetail{
			PhonePtBr:  FormatPtBr(e164),
			PhoneE164:  e164,
			Confidence: st.confidence,
			Sources:    sources,
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].PhoneE164 < details[j].PhoneE164 })
	return details
}

// SelectPrimary picks the best number: highest confidence, then most
// distinct sources, then the lexicographically smallest E.164.
func SelectPrimary(details []models.PhoneDetail) (models.PhoneDetail, bool) {
	if len(details) == 0 {
		return models.PhoneDetail{}, false
	}
	ranked := make([]models.PhoneDetail, len(details))
	copy(ranked, details)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence.Weight() != b.Confidence.Weight() {
			return a.Confidence.Weight() > b.Confidence.Weight()
		}
		if len(a.Sources) != len(b.Sources) {
			return len(a.Sources) > len(b.Sources)
		}
		return a.PhoneE164 < b.PhoneE164
	})
	return ranked[0], true
}

func buildSet(details []models.PhoneDetail) models.PhoneSet {
	set := models.PhoneSet{
		PhonesPtBr: make([]string, 0, len(details)),
		PhonesE164: make([]string, 0, len(details)),
		Details:    details,
	}
	for _, d := range details {
		set.PhonesPtBr = append(set.PhonesPtBr, d.PhonePtBr)
		set.PhonesE164 = append(set.PhonesE164, d.PhoneE164)
	}
	if primary, ok := SelectPrimary(details); ok {
		set.PrimaryPtBr = primary.PhonePtBr
		set.PrimaryE164 = primary.PhoneE164
		set.PrimaryConfidence = primary.Confidence
	}
	return set
}
