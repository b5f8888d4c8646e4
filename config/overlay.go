package config

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Overlay replaces built-in selectors without a rebuild. Empty fields keep
// the defaults.
//
//	captcha:
//	  selectors: ["#captcha-form", "div.g-recaptcha"]
//	  frame_patterns: ["recaptcha"]
//	  phrases: ["unusual traffic"]
//	results:
//	  container: "#rso"
//	  item: "div[data-hveid]"
//	  title: "h3"
//	  link: "a[href^=\"http\"]"
//	  ready: "#search h3"
//	  next_page: "#pnnext"
//	  next_page_names: ["Mais", "Next"]
//	  ignore_patterns: ["youtube.com"]
type Overlay struct {
	Captcha CaptchaOverlay `yaml:"captcha"`
	Results ResultsOverlay `yaml:"results"`
}

type CaptchaOverlay struct {
	Selectors     []string `yaml:"selectors"`
	FramePatterns []string `yaml:"frame_patterns"`
	Phrases       []string `yaml:"phrases"`
}

type ResultsOverlay struct {
	Container      string   `yaml:"container"`
	Item           string   `yaml:"item"`
	Title          string   `yaml:"title"`
	Link           string   `yaml:"link"`
	Ready          string   `yaml:"ready"`
	NextPage       string   `yaml:"next_page"`
	NextPageNames  []string `yaml:"next_page_names"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// LoadOverlay reads and validates a selector overlay file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read selectors file: %w", err)
	}
	return ParseOverlay(data)
}

// ParseOverlay decodes YAML and compiles every selector so a typo fails
// at startup instead of silently matching nothing mid-run.
func ParseOverlay(data []byte) (*Overlay, error) {
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("config: parse selectors file: %w", err)
	}

	selectors := append([]string{}, o.Captcha.Selectors...)
	selectors = append(selectors,
		o.Results.Container, o.Results.Item, o.Results.Title,
		o.Results.Link, o.Results.Ready, o.Results.NextPage,
	)
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return nil, fmt.Errorf("config: invalid selector %q: %w", sel, err)
		}
	}
	return &o, nil
}
