package simhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	a := "https://www.instagram.com/docesdaana/ https://www.instagram.com/bolosdamaria/ https://www.instagram.com/confeitariarecife/"

	assert.Equal(t, Fingerprint(a), Fingerprint(a))
	assert.Equal(t, Fingerprint(a), FingerprintTokens([]string{
		"https://www.instagram.com/docesdaana/",
		"https://www.instagram.com/bolosdamaria/",
		"https://www.instagram.com/confeitariarecife/",
	}))
	assert.Zero(t, Fingerprint(""))
	assert.Zero(t, Fingerprint(" \t\n "))
	assert.NotZero(t, Fingerprint("https://www.instagram.com/docesdaana/"))
}

func TestFingerprint_DifferentPages(t *testing.T) {
	page1 := Fingerprint("https://a.com/1 https://a.com/2 https://a.com/3 https://a.com/4 https://a.com/5 https://a.com/6")
	page2 := Fingerprint("https://b.com/7 https://b.com/8 https://b.com/9 https://b.com/10 https://b.com/11 https://b.com/12")

	assert.Greater(t, Distance(page1, page2), 3)
	assert.False(t, Similar(page1, page2, 3))
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestSimilar_Threshold(t *testing.T) {
	a := Fingerprint("one two three")
	b := Fingerprint("a completely different list of words")
	d := Distance(a, b)

	assert.True(t, Similar(a, a, 0))
	assert.True(t, Similar(a, b, d))
	assert.False(t, Similar(a, b, d-1))
}

func TestFingerprintDOM(t *testing.T) {
	empty1 := `<html><body><div id="rso"><div><p>Nenhum resultado para "doces"</p></div></div></body></html>`
	empty2 := `<html><body><div id="rso"><div><p>Nenhum resultado para "bolos"</p></div></div></body></html>`
	table := `<html><body><table><tr><td>A</td><td>B</td></tr><tr><td>C</td></tr></table></body></html>`

	assert.Equal(t, FingerprintDOM(empty1), FingerprintDOM(empty2))
	assert.Greater(t, Distance(FingerprintDOM(empty1), FingerprintDOM(table)), 3)
	assert.Zero(t, FingerprintDOM(""))
	assert.Zero(t, FingerprintDOM("no tags at all"))
	assert.NotZero(t, FingerprintDOM("<br/>"))
}

func TestFingerprintDOM_IgnoresScripts(t *testing.T) {
	a := `<html><body><script>var a = "<div><div>";</script><div><p>x</p></div></body></html>`
	b := `<html><body><script src="/x.js"></script><style>p{}</style><div><p>y</p></div></body></html>`

	assert.Equal(t, FingerprintDOM(a), FingerprintDOM(b))
}

func TestOpenTags(t *testing.T) {
	got := openTags(`<html><head><title>T</title><script>x()</script></head><body><div><svg><path/></svg><p>Hi</p><br/></div></body></html>`)
	assert.Equal(t, []string{"html", "head", "title", "body", "div", "p", "br"}, got)
}

func TestShingles(t *testing.T) {
	assert.Equal(t, []string{"a>b>c", "b>c>d"}, shingles([]string{"a", "b", "c", "d"}, 3))
	assert.Nil(t, shingles([]string{"a", "b"}, 3))
}
