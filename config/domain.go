package config

import (
	"fmt"
	"net/url"

	"github.com/use-agent/leadscout/captcha"
	"github.com/use-agent/leadscout/search"
)

// Validate checks values that cannot be defaulted and loads the selector
// overlay when one is configured.
func (c *Config) Validate() error {
	if c.Browser.Proxy != "" {
		if err := ValidateProxy(c.Browser.Proxy); err != nil {
			return err
		}
	}
	if c.Search.MaxPages < 1 {
		return fmt.Errorf("config: max pages must be at least 1, got %d", c.Search.MaxPages)
	}
	if c.Search.ProfileCap < 0 {
		return fmt.Errorf("config: profile cap must not be negative, got %d", c.Search.ProfileCap)
	}
	if c.SelectorsFile != "" {
		o, err := LoadOverlay(c.SelectorsFile)
		if err != nil {
			return err
		}
		c.Selectors = o
	}
	return nil
}

// ValidateProxy accepts http, https and socks5 proxy URLs with a host.
func ValidateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid proxy %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("config: unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("config: proxy %q has no host", raw)
	}
	return nil
}

// CaptchaSettings merges the env timings with the selector overlay.
func (c *Config) CaptchaSettings() captcha.Config {
	cc := captcha.DefaultConfig()
	cc.ObserveWindow = c.Captcha.ObserveWindow
	cc.VisibleTimeout = c.Captcha.VisibleTimeout
	cc.PollInterval = c.Captcha.PollInterval
	cc.ClearPolls = c.Captcha.ClearPolls
	cc.TextScanLimit = c.Captcha.TextScanLimit

	if o := c.Selectors; o != nil {
		if len(o.Captcha.Selectors) > 0 {
			cc.Selectors = o.Captcha.Selectors
		}
		if len(o.Captcha.FramePatterns) > 0 {
			cc.FramePatterns = o.Captcha.FramePatterns
		}
		if len(o.Captcha.Phrases) > 0 {
			cc.Phrases = o.Captcha.Phrases
		}
	}
	return cc
}

// SearchSettings merges the env pacing with the selector overlay.
func (c *Config) SearchSettings() search.Config {
	sc := search.DefaultConfig()
	sc.MaxPages = c.Search.MaxPages
	sc.ProfileCap = c.Search.ProfileCap
	sc.ProfileDelay = c.Search.ProfileDelay
	sc.ProfileJitter = c.Search.ProfileJitter
	sc.ReadyTimeout = c.Search.ReadyTimeout
	sc.ReadyDeadline = c.Search.ReadyDeadline

	o := c.Selectors
	if o == nil {
		return sc
	}
	r := o.Results
	setIf(&sc.Rows.Container, r.Container)
	setIf(&sc.Rows.Item, r.Item)
	setIf(&sc.Rows.Title, r.Title)
	setIf(&sc.Rows.Link, r.Link)
	setIf(&sc.ResultsReady, r.Ready)
	setIf(&sc.NextPageSelector, r.NextPage)
	if len(r.NextPageNames) > 0 {
		sc.NextPageNames = r.NextPageNames
	}
	if len(r.IgnorePatterns) > 0 {
		sc.IgnorePatterns = r.IgnorePatterns
	}
	return sc
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
