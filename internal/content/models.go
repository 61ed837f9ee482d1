// Package content defines the portfolio entities shared by the admin core and the API.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	FontSmall      = "small"
	FontMedium     = "medium"
	FontLarge      = "large"
	FontExtraLarge = "extra-large"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// FontSizes lists the accepted font_size values in display order.
var FontSizes = []string{FontSmall, FontMedium, FontLarge, FontExtraLarge}

// Themes lists the accepted theme values.
var Themes = []string{ThemeLight, ThemeDark}

// Hero is the singleton profile shown at the top of the site.
type Hero struct {
	ID           int64   `json:"id,omitempty"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ProfileImage *string `json:"profile_image"`
}

type Project struct {
	ID           int64    `json:"id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Image        string   `json:"image"`
	GithubURL    string   `json:"github_url"`
	LiveURL      string   `json:"live_url"`
	Technologies []string `json:"technologies"`
	IsFeatured   bool     `json:"is_featured"`
}

type Experience struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Duration    string   `json:"duration"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

// Settings is the singleton site-wide configuration.
type Settings struct {
	FontSize    string `json:"font_size"`
	Theme       string `json:"theme"`
	Email       string `json:"email"`
	GithubURL   string `json:"github_url"`
	LinkedinURL string `json:"linkedin_url"`
	TwitterURL  string `json:"twitter_url"`
}

// DefaultSettings returns the settings used when the backend has none.
func DefaultSettings() Settings {
	return Settings{FontSize: FontMedium, Theme: ThemeLight}
}

// WithDefaults fills unset font size and theme.
func (s Settings) WithDefaults() Settings {
	if strings.TrimSpace(s.FontSize) == "" {
		s.FontSize = FontMedium
	}
	if strings.TrimSpace(s.Theme) == "" {
		s.Theme = ThemeLight
	}
	return s
}

// UnmarshalJSON accepts the camelCase profileImage key written by older clients.
func (h *Hero) UnmarshalJSON(data []byte) error {
	type plain Hero
	aux := struct {
		*plain
		LegacyProfileImage *string `json:"profileImage"`
	}{plain: (*plain)(h)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if isBlank(h.ProfileImage) && !isBlank(aux.LegacyProfileImage) {
		h.ProfileImage = aux.LegacyProfileImage
	}
	return nil
}

// UnmarshalJSON accepts githubUrl/liveUrl and a numeric or quoted is_featured flag.
func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		IsFeatured      json.RawMessage `json:"is_featured"`
		LegacyGithubURL string          `json:"githubUrl"`
		LegacyLiveURL   string          `json:"liveUrl"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	featured, err := parseFlag(aux.IsFeatured)
	if err != nil {
		return fmt.Errorf("is_featured: %w", err)
	}
	p.IsFeatured = featured
	p.GithubURL = firstNonBlank(p.GithubURL, aux.LegacyGithubURL)
	p.LiveURL = firstNonBlank(p.LiveURL, aux.LegacyLiveURL)
	return nil
}

// Clone returns a deep copy.
func (h Hero) Clone() Hero {
	if h.ProfileImage != nil {
		image := *h.ProfileImage
		h.ProfileImage = &image
	}
	return h
}

// Clone returns a deep copy.
func (p Project) Clone() Project {
	p.Technologies = cloneStrings(p.Technologies)
	return p
}

// Clone returns a deep copy.
func (e Experience) Clone() Experience {
	e.Skills = cloneStrings(e.Skills)
	return e
}

// parseFlag reads a boolean, a 0/1 number or either of those in quotes.
func parseFlag(raw json.RawMessage) (bool, error) {
	value := string(bytes.TrimSpace(raw))
	if strings.HasPrefix(value, `"`) {
		var quoted string
		if err := json.Unmarshal(raw, &quoted); err != nil {
			return false, err
		}
		value = strings.TrimSpace(quoted)
	}
	switch value {
	case "", "null":
		return false, nil
	}
	flag, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("unsupported flag value %s", raw)
	}
	return flag, nil
}

func cloneStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
