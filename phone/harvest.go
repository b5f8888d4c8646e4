package phone

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/leadscout/models"
)

// candidatePattern is deliberately permissive; NormalizeE164 does the
// real validation.
var candidatePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)

const (
	maxDecodePasses = 2
	maxURLDepth     = 2
)

// candidate is one raw digit run and where it came from.
type candidate struct {
	raw        string
	source     string
	confidence models.Confidence
}

// harvestText returns every digit run found in text and in its
// percent-decoded form, all tagged with the same source.
func harvestText(text, source string, confidence models.Confidence) []candidate {
	if text == "" {
		return nil
	}
	var out []candidate
	seen := make(map[string]struct{})
	for _, variant := range []string{text, decodeRepeated(text)} {
		for _, m := range candidatePattern.FindAllString(variant, -1) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, candidate{raw: m, source: source, confidence: confidence})
		}
	}
	return out
}

// harvestURL unwraps a link into phone candidates: the decoded URL text,
// a wa.me path, a phone query parameter and every other query value.
// Query values that are themselves links are unwrapped recursively, up to
// maxURLDepth levels, under the "<prefix>_nested" source prefix.
func harvestURL(rawURL, prefix string, depth int) []candidate {
	if strings.TrimSpace(rawURL) == "" || depth > maxURLDepth {
		return nil
	}

	decoded := decodeRepeated(rawURL)
	out := harvestText(decoded, prefix+"_raw_text", models.ConfidenceMedium)

	u, err := url.Parse(normalizeURL(decoded))
	if err != nil || u.Host == "" {
		return out
	}

	host := strings.ToLower(u.Hostname())
	if isWaMeHost(host) {
		path := strings.ReplaceAll(u.Path, "/", "")
		out = append(out, candidate{raw: path, source: prefix + "_wa_path", confidence: models.ConfidenceHigh})
	}

	query := u.Query()
	if p := query.Get("phone"); p != "" {
		if isWhatsAppHost(host) {
			out = append(out, candidate{raw: p, source: prefix + "_wa_phone_param", confidence: models.ConfidenceHigh})
		} else {
			out = append(out, candidate{raw: p, source: prefix + "_phone_param", confidence: models.ConfidenceMedium})
		}
	}

	for _, values := range query {
		for _, v := range values {
			dv := decodeRepeated(v)
			out = append(out, harvestText(dv, prefix+"_query_text", models.ConfidenceMedium)...)
			if strings.Contains(dv, "http") || strings.Contains(dv, "wa.me") {
				out = append(out, harvestURL(dv, prefix+"_nested", depth+1)...)
			}
		}
	}
	return out
}

// decodeRepeated percent-decodes up to maxDecodePasses times, stopping
// early on a no-op or a malformed escape.
func decodeRepeated(s string) string {
	current := s
	for i := 0; i < maxDecodePasses; i++ {
		decoded, err := url.PathUnescape(current)
		if err != nil || decoded == current {
			break
		}
		current = decoded
	}
	return current
}

func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	if strings.HasPrefix(lower, "wa.me/") {
		return "https://" + s
	}
	return s
}

func isWaMeHost(host string) bool {
	return host == "wa.me" || strings.HasSuffix(host, ".wa.me")
}

func isWhatsAppHost(host string) bool {
	return isWaMeHost(host) || strings.Contains(host, "whatsapp.com")
}
