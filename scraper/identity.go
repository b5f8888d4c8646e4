package scraper

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Identity is the browser fingerprint a session presents. One identity
// is picked per run and applied to every tab so headers and JS agree.
type Identity struct {
	UserAgent           string
	SecChUa             string
	SecChUaMobile       string
	SecChUaPlatform     string
	Platform            string
	Locale              string
	AcceptLanguage      string
	TimezoneID          string
	HardwareConcurrency int
}

var identities = []Identity{
	{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
		SecChUa:             `"Not(A:Brand";v="99", "Google Chrome";v="133", "Chromium";v="133"`,
		SecChUaMobile:       "?0",
		SecChUaPlatform:     `"Windows"`,
		Platform:            "Win32",
		Locale:              "pt-BR",
		AcceptLanguage:      "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		TimezoneID:          "America/Sao_Paulo",
		HardwareConcurrency: 8,
	},
	{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
		SecChUa:             `"Not(A:Brand";v="24", "Google Chrome";v="132", "Chromium";v="132"`,
		SecChUaMobile:       "?0",
		SecChUaPlatform:     `"Windows"`,
		Platform:            "Win32",
		Locale:              "pt-BR",
		AcceptLanguage:      "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		TimezoneID:          "America/Sao_Paulo",
		HardwareConcurrency: 12,
	},
	{
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		SecChUa:             `"Not(A:Brand";v="8", "Google Chrome";v="131", "Chromium";v="131"`,
		SecChUaMobile:       "?0",
		SecChUaPlatform:     `"Windows"`,
		Platform:            "Win32",
		Locale:              "pt-BR",
		AcceptLanguage:      "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		TimezoneID:          "America/Sao_Paulo",
		HardwareConcurrency: 4,
	},
}

// PickIdentity returns identity i, or a random one when i is out of range.
func PickIdentity(i int) Identity {
	if i >= 0 && i < len(identities) {
		return identities[i]
	}
	return identities[rand.IntN(len(identities))]
}

type geoSettings struct {
	locale   string
	timezone string
	language string
}

var geoByCountry = map[string]geoSettings{
	"BR": {"pt-BR", "America/Sao_Paulo", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"},
	"US": {"en-US", "America/New_York", "en-US,en;q=0.9"},
	"GB": {"en-GB", "Europe/London", "en-GB,en;q=0.9"},
	"DE": {"de-DE", "Europe/Berlin", "de-DE,de;q=0.9,en;q=0.8"},
	"FR": {"fr-FR", "Europe/Paris", "fr-FR,fr;q=0.9,en;q=0.8"},
	"ES": {"es-ES", "Europe/Madrid", "es-ES,es;q=0.9,en;q=0.8"},
}

// WithGeo aligns locale and timezone with the proxy's exit country so the
// fingerprint does not contradict the IP. Unknown countries keep the
// identity's own locale with the Sao Paulo timezone.
func (id Identity) WithGeo(country string) Identity {
	if country == "" {
		return id
	}
	g, ok := geoByCountry[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		id.TimezoneID = "America/Sao_Paulo"
		return id
	}
	id.Locale = g.locale
	id.TimezoneID = g.timezone
	id.AcceptLanguage = g.language
	return id
}

func (id Identity) headers() map[string]string {
	return map[string]string{
		"Accept-Language":           id.AcceptLanguage,
		"sec-ch-ua":                 id.SecChUa,
		"sec-ch-ua-mobile":          id.SecChUaMobile,
		"sec-ch-ua-platform":        id.SecChUaPlatform,
		"Upgrade-Insecure-Requests": "1",
	}
}

// navigatorJS pins the navigator fields the stealth script leaves alone.
// It runs as an init script, so it must invoke itself.
func (id Identity) navigatorJS() string {
	return fmt.Sprintf(`(() => {
		Object.defineProperty(navigator, 'platform', { get: () => %q, configurable: true });
		Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d, configurable: true });
		if (typeof window.Notification === 'undefined') {
			window.Notification = { permission: 'default', requestPermission: async () => 'default' };
		}
	})();`, id.Platform, id.HardwareConcurrency)
}

// apply installs the identity on a fresh tab. It must run before the first
// navigation: init scripts only reach documents created afterwards.
func (id Identity) apply(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return fmt.Errorf("stealth injection: %w", err)
	}
	if _, err := page.EvalOnNewDocument(id.navigatorJS()); err != nil {
		return fmt.Errorf("navigator override: %w", err)
	}
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      id.UserAgent,
		AcceptLanguage: id.AcceptLanguage,
		Platform:       id.Platform,
	}).Call(page); err != nil {
		return fmt.Errorf("user agent override: %w", err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: id.TimezoneID}).Call(page); err != nil {
		return fmt.Errorf("timezone override: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: id.Locale}).Call(page); err != nil {
		return fmt.Errorf("locale override: %w", err)
	}
	return proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(id.headers())}.Call(page)
}
