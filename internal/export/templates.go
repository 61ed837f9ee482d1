package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"portfolio/cms/internal/content"
)

//go:embed templates/*.html
var templateFS embed.FS

var portfolioTemplate = template.Must(
	template.New("portfolio.html").Funcs(template.FuncMap{
		"join": strings.Join,
		"nonEmpty": func(values ...string) []string {
			out := make([]string, 0, len(values))
			for _, v := range values {
				if strings.TrimSpace(v) != "" {
					out = append(out, v)
				}
			}
			return out
		},
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"fontSize": cssFontSize,
	}).ParseFS(templateFS, "templates/portfolio.html"),
)

// TemplateData is the flattened view the portfolio page renders.
type TemplateData struct {
	Name         string
	Headline     string
	About        string
	ProfileImage string
	Projects     []content.Project
	Experiences  []content.Experience
	content.Settings
	GeneratedAt time.Time
}

// NewTemplateData flattens a portfolio. Relative image paths are resolved
// against assetBase so headless Chrome can load them from a data URL.
func NewTemplateData(p content.Portfolio, assetBase string, now time.Time) TemplateData {
	snap := p.Snapshot()
	data := TemplateData{
		Name:        snap.Hero.Name,
		Headline:    snap.Hero.Title,
		About:       snap.Hero.Description,
		Projects:    featuredFirst(snap.Projects),
		Experiences: snap.Experiences,
		Settings:    snap.Settings,
		GeneratedAt: now,
	}
	if snap.Hero.ProfileImage != nil {
		data.ProfileImage = resolveAsset(assetBase, *snap.Hero.ProfileImage)
	}
	return data
}

// RenderPortfolioHTML renders the portfolio template with provided data
func RenderPortfolioHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := portfolioTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func featuredFirst(projects []content.Project) []content.Project {
	out := make([]content.Project, 0, len(projects))
	for _, p := range projects {
		if p.IsFeatured {
			out = append(out, p)
		}
	}
	for _, p := range projects {
		if !p.IsFeatured {
			out = append(out, p)
		}
	}
	return out
}

func resolveAsset(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" || !strings.HasPrefix(ref, "/") {
		return ref
	}
	return strings.TrimRight(base, "/") + ref
}

func cssFontSize(size string) string {
	switch size {
	case content.FontSmall:
		return "14px"
	case content.FontLarge:
		return "18px"
	case content.FontExtraLarge:
		return "20px"
	}
	return "16px"
}
