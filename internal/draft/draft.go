package draft

import (
	"fmt"
	"strconv"
	"strings"

	"portfolio/cms/internal/content"
	"portfolio/cms/internal/fields"
)

// Draft is one of *Hero, *Project, *Experience or *Settings.
type Draft interface {
	Kind() Kind
	// Set assigns a field by its canonical name or a legacy alias.
	Set(field, value string) error
	// Fields lists the editable fields with their current text.
	Fields() []Field
	Clone() Draft
	sealed()
}

type Field struct {
	Name  string
	Value string
}

var legacyNames = map[string]string{
	"profileImage": "profile_image",
	"githubUrl":    "github_url",
	"liveUrl":      "live_url",
	"fontSize":     "font_size",
	"linkedinUrl":  "linkedin_url",
	"twitterUrl":   "twitter_url",
	"isFeatured":   "is_featured",
}

func canonicalName(field string) string {
	field = strings.TrimSpace(field)
	if canonical, ok := legacyNames[field]; ok {
		return canonical
	}
	return strings.ToLower(field)
}

type binding struct {
	name string
	ptr  *string
}

func setBinding(kind Kind, bindings []binding, field, value string) error {
	name := canonicalName(field)
	for _, b := range bindings {
		if b.name == name {
			*b.ptr = value
			return nil
		}
	}
	return fmt.Errorf("%w %q for %s", ErrUnknownField, field, kind)
}

func listBindings(bindings []binding) []Field {
	out := make([]Field, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, Field{Name: b.name, Value: *b.ptr})
	}
	return out
}

type Hero struct {
	Name         string
	Title        string
	Description  string
	ProfileImage string
}

func StageHero(h content.Hero) *Hero {
	d := &Hero{Name: h.Name, Title: h.Title, Description: h.Description}
	if h.ProfileImage != nil {
		d.ProfileImage = *h.ProfileImage
	}
	return d
}

func (d *Hero) bindings() []binding {
	return []binding{
		{"name", &d.Name},
		{"title", &d.Title},
		{"description", &d.Description},
		{"profile_image", &d.ProfileImage},
	}
}

func (d *Hero) Kind() Kind                    { return KindHero }
func (d *Hero) Set(field, value string) error { return setBinding(KindHero, d.bindings(), field, value) }
func (d *Hero) Fields() []Field               { return listBindings(d.bindings()) }
func (d *Hero) Clone() Draft                  { c := *d; return &c }
func (d *Hero) sealed()                       {}

// Payload returns the canonical hero; a blank image is sent as null.
func (d *Hero) Payload() content.Hero {
	hero := content.Hero{Name: d.Name, Title: d.Title, Description: d.Description}
	if strings.TrimSpace(d.ProfileImage) != "" {
		image := d.ProfileImage
		hero.ProfileImage = &image
	}
	return hero
}

type Project struct {
	Title        string
	Description  string
	Image        string
	GithubURL    string
	LiveURL      string
	Technologies string
	IsFeatured   bool
}

// NewProject is the empty template for a new project entry.
func NewProject(featured bool) *Project {
	return &Project{IsFeatured: featured}
}

func StageProject(p content.Project) *Project {
	return &Project{
		Title:        p.Title,
		Description:  p.Description,
		Image:        p.Image,
		GithubURL:    p.GithubURL,
		LiveURL:      p.LiveURL,
		Technologies: fields.ToEditable(p.Technologies),
		IsFeatured:   p.IsFeatured,
	}
}

func (d *Project) bindings() []binding {
	return []binding{
		{"title", &d.Title},
		{"description", &d.Description},
		{"image", &d.Image},
		{"github_url", &d.GithubURL},
		{"live_url", &d.LiveURL},
		{"technologies", &d.Technologies},
	}
}

func (d *Project) Kind() Kind { return KindProject }

func (d *Project) Set(field, value string) error {
	if canonicalName(field) == "is_featured" {
		featured, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("is_featured: %w", err)
		}
		d.IsFeatured = featured
		return nil
	}
	return setBinding(KindProject, d.bindings(), field, value)
}

func (d *Project) Fields() []Field {
	return append(listBindings(d.bindings()), Field{Name: "is_featured", Value: strconv.FormatBool(d.IsFeatured)})
}

func (d *Project) Clone() Draft { c := *d; return &c }
func (d *Project) sealed()      {}

func (d *Project) Payload() content.Project {
	return content.Project{
		Title:        d.Title,
		Description:  d.Description,
		Image:        d.Image,
		GithubURL:    d.GithubURL,
		LiveURL:      d.LiveURL,
		Technologies: fields.ToList(d.Technologies),
		IsFeatured:   d.IsFeatured,
	}
}

type Experience struct {
	Title       string
	Company     string
	Duration    string
	Location    string
	Description string
	Skills      string
}

func StageExperience(e content.Experience) *Experience {
	return &Experience{
		Title:       e.Title,
		Company:     e.Company,
		Duration:    e.Duration,
		Location:    e.Location,
		Description: e.Description,
		Skills:      fields.ToEditable(e.Skills),
	}
}

func (d *Experience) bindings() []binding {
	return []binding{
		{"title", &d.Title},
		{"company", &d.Company},
		{"duration", &d.Duration},
		{"location", &d.Location},
		{"description", &d.Description},
		{"skills", &d.Skills},
	}
}

func (d *Experience) Kind() Kind { return KindExperience }
func (d *Experience) Set(field, value string) error {
	return setBinding(KindExperience, d.bindings(), field, value)
}
func (d *Experience) Fields() []Field { return listBindings(d.bindings()) }
func (d *Experience) Clone() Draft    { c := *d; return &c }
func (d *Experience) sealed()         {}

func (d *Experience) Payload() content.Experience {
	return content.Experience{
		Title:       d.Title,
		Company:     d.Company,
		Duration:    d.Duration,
		Location:    d.Location,
		Description: d.Description,
		Skills:      fields.ToList(d.Skills),
	}
}

type Settings struct {
	FontSize    string
	Theme       string
	Email       string
	GithubURL   string
	LinkedinURL string
	TwitterURL  string
}

func StageSettings(s content.Settings) *Settings {
	return &Settings{
		FontSize:    s.FontSize,
		Theme:       s.Theme,
		Email:       s.Email,
		GithubURL:   s.GithubURL,
		LinkedinURL: s.LinkedinURL,
		TwitterURL:  s.TwitterURL,
	}
}

func (d *Settings) bindings() []binding {
	return []binding{
		{"font_size", &d.FontSize},
		{"theme", &d.Theme},
		{"email", &d.Email},
		{"github_url", &d.GithubURL},
		{"linkedin_url", &d.LinkedinURL},
		{"twitter_url", &d.TwitterURL},
	}
}

func (d *Settings) Kind() Kind { return KindSettings }
func (d *Settings) Set(field, value string) error {
	return setBinding(KindSettings, d.bindings(), field, value)
}
func (d *Settings) Fields() []Field { return listBindings(d.bindings()) }
func (d *Settings) Clone() Draft    { c := *d; return &c }
func (d *Settings) sealed()         {}

func (d *Settings) Payload() content.Settings {
	return content.Settings{
		FontSize:    d.FontSize,
		Theme:       d.Theme,
		Email:       d.Email,
		GithubURL:   d.GithubURL,
		LinkedinURL: d.LinkedinURL,
		TwitterURL:  d.TwitterURL,
	}
}

// Template returns the empty draft staged when a new entry is started in a
// listed section. Singletons have no template.
func Template(section Section) (Draft, bool) {
	switch section {
	case SectionFeatured:
		return NewProject(true), true
	case SectionProjects:
		return NewProject(false), true
	case SectionExperiences:
		return &Experience{}, true
	}
	return nil, false
}
