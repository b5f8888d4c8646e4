package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedTags hold markup whose children vary between otherwise equal pages.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
}

// FingerprintDOM fingerprints the tag structure of htmlStr, ignoring text
// and attributes. Used for pages that carry no result rows, such as
// "no results" or interstitial pages.
func FingerprintDOM(htmlStr string) uint64 {
	tags := openTags(htmlStr)
	if len(tags) == 0 {
		return 0
	}
	if sh := shingles(tags, 3); len(sh) > 0 {
		return FingerprintTokens(sh)
	}
	return FingerprintTokens(tags)
}

// openTags lists start tag names in document order, skipping the subtrees
// of skippedTags.
func openTags(htmlStr string) []string {
	z := html.NewTokenizer(strings.NewReader(htmlStr))
	var tags []string
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken:
			tn, _ := z.TagName()
			name := string(tn)
			if skipDepth > 0 || skippedTags[name] {
				if skippedTags[name] {
					skipDepth++
				}
				continue
			}
			tags = append(tags, name)
		case html.EndTagToken:
			tn, _ := z.TagName()
			if skipDepth > 0 && skippedTags[string(tn)] {
				skipDepth--
			}
		case html.SelfClosingTagToken:
			if skipDepth == 0 {
				tn, _ := z.TagName()
				tags = append(tags, string(tn))
			}
		}
	}
}

// shingles joins every run of n consecutive tokens. Fewer than n tokens
// yield nil.
func shingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], ">"))
	}
	return out
}
