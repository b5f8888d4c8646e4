package instagram

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/leadscout/models"
)

func TestParseProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		ok       bool
		username string
	}{
		{"plain profile", "https://www.instagram.com/Padaria.Central/", true, "padaria.central"},
		{"mobile host with query", "https://m.instagram.com/lojaxyz?igsh=abc", true, "lojaxyz"},
		{"short domain", "https://instagr.am/studio_b", true, "studio_b"},
		{"nested path", "https://www.instagram.com/lojaxyz/reels/", true, "lojaxyz"},
		{"post", "https://www.instagram.com/p/Cx1y2z3/", false, ""},
		{"reel", "https://www.instagram.com/reel/Cx1y2z3/", false, ""},
		{"explore", "https://www.instagram.com/explore/tags/pizza/", false, ""},
		{"root", "https://www.instagram.com/", false, ""},
		{"other domain", "https://www.facebook.com/lojaxyz", false, ""},
		{"lookalike domain", "https://notinstagram.com/lojaxyz", false, ""},
		{"dot prefix", "https://www.instagram.com/.hidden/", false, ""},
		{"invalid chars", "https://www.instagram.com/loja-xyz/", false, ""},
		{"not a url", "instagram lojaxyz", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProfileURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.username, got.Username)
			if tt.ok {
				assert.Equal(t, "https://www.instagram.com/"+tt.username+"/?hl=pt", got.NormalizedURL)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"78 publicações", 78},
		{"1.234 seguidores", 1234},
		{"1,234 followers", 1234},
		{"12,5 mil seguidores", 12500},
		{"12.5K followers", 12500},
		{"3M followers", 3000000},
		{"1,2 mi seguidores", 1200000},
		{"seguidores", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCount(tt.in))
		})
	}
}

const profileFixture = `<html><head>
<meta property="og:description" content="9 seguidores, 1 seguindo, 2 publicações - Veja as fotos e vídeos do Instagram de Outro (@outro)">
</head><body>
<header><section>
  <div><h2>padaria.central</h2></div>
  <div><span>Padaria Central</span></div>
  <div><ul><li>120 publicações</li><li>4.560 seguidores</li><li>321 seguindo</li></ul></div>
  <div><div><span>Pães artesanais desde 1998. Encomendas (11) 91234-5678... mais</span></div>
    <a href="https://l.instagram.com/?u=https%3A%2F%2Fwa.me%2F5511987654321&amp;e=AT0">wa.me/5511987654321</a>
    <a href="https://linktr.ee/padariacentral">linktr.ee/padariacentral</a>
    <a href="https://www.instagram.com/explore/tags/pao/">#pao</a>
  </div>
</section></header>
</body></html>`

func TestParseProfileHTML(t *testing.T) {
	p, err := ParseProfileHTML(profileFixture, "https://www.instagram.com/padaria.central/?hl=pt")
	require.NoError(t, err)

	assert.Equal(t, "padaria.central", p.Username)
	assert.Equal(t, "Padaria Central", p.Name)
	assert.Equal(t, 120, p.Posts)
	assert.Equal(t, 4560, p.Followers)
	assert.Equal(t, 321, p.Following)
	assert.Equal(t, "Pães artesanais desde 1998. Encomendas (11) 91234-5678", p.Bio)
	require.Len(t, p.BioLinks, 2)
	assert.Equal(t, "https://wa.me/5511987654321", p.BioLinks[0].URL)
	assert.Equal(t, "https://linktr.ee/padariacentral", p.BioLinks[1].URL)
	assert.Equal(t, "https://wa.me/5511987654321", p.Link)
	assert.Equal(t, "https://www.instagram.com/padaria.central/?hl=pt", p.ProfileURL)
	assert.False(t, p.ExtractedAt.IsZero())
}

func TestParseProfileHTML_FallsBackToMeta(t *testing.T) {
	html := `<html><head>
<meta property="og:description" content="1,234 Followers, 56 Following, 78 Posts - See Instagram photos and videos from Jane Doe (@JaneDoe)">
<meta name="description" content="1,234 Followers, 56 Following, 78 Posts - Jane Doe (@janedoe) on Instagram: &#34;Doces sob encomenda 21 99876-5432&#34;">
</head><body><main></main></body></html>`

	p, err := ParseProfileHTML(html, "https://www.instagram.com/janedoe/?hl=pt")
	require.NoError(t, err)

	assert.Equal(t, "janedoe", p.Username)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, 1234, p.Followers)
	assert.Equal(t, 56, p.Following)
	assert.Equal(t, 78, p.Posts)
	assert.Equal(t, "Doces sob encomenda 21 99876-5432", p.Bio)
}

func TestParseProfileHTML_LoginWall(t *testing.T) {
	html := `<html><body><form>
<input name="username"><input name="password" type="password">
</form></body></html>`

	_, err := ParseProfileHTML(html, "https://www.instagram.com/x/?hl=pt")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeLoginWall, models.ErrorCode(err))
}

func TestParseProfileHTML_Unparseable(t *testing.T) {
	_, err := ParseProfileHTML(`<html><body><p>Sorry, this page isn't available.</p></body></html>`, "u")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeProfileParse, models.ErrorCode(err))
}

func TestParseProfileMeta_Portuguese(t *testing.T) {
	html := `<html><head><meta property="og:description" content="12,5 mil seguidores, 300 seguindo, 1.020 publicações - Veja as fotos e vídeos do Instagram de Studio B (@studio_b)"></head></html>`

	p, err := ParseProfileMeta(html, "https://www.instagram.com/studio_b/?hl=pt")
	require.NoError(t, err)

	assert.Equal(t, "studio_b", p.Username)
	assert.Equal(t, "Studio B", p.Name)
	assert.Equal(t, 12500, p.Followers)
	assert.Equal(t, 300, p.Following)
	assert.Equal(t, 1020, p.Posts)
}

func TestDetectLoginWall_ProfileHeaderWins(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(profileFixture + `<input name="username"><input name="password">`))
	require.NoError(t, err)
	assert.False(t, DetectLoginWall(doc))
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "abc123", SessionIDFromEnv("  sessionid=abc123 "))
	assert.Equal(t, "abc123", SessionIDFromEnv("abc123"))
	assert.Equal(t, "***", MaskSessionID("short"))
	assert.Equal(t, "1234...cdef", MaskSessionID("1234567890abcdef"))
}
