// Package draft holds the staged, not yet committed copy of an entity while
// the operator edits it. List fields are held as editable text.
package draft

import (
	"errors"
	"fmt"
	"strings"
)

type Section string

const (
	SectionHero        Section = "hero"
	SectionFeatured    Section = "featured"
	SectionProjects    Section = "projects"
	SectionExperiences Section = "experiences"
	SectionSettings    Section = "settings"
)

// Sections lists every section in dashboard order.
var Sections = []Section{SectionHero, SectionFeatured, SectionProjects, SectionExperiences, SectionSettings}

// Kind names the payload type a draft carries.
type Kind string

const (
	KindHero       Kind = "hero"
	KindProject    Kind = "project"
	KindExperience Kind = "experience"
	KindSettings   Kind = "settings"
)

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrUnknownField   = errors.New("unknown field")
)

func ParseSection(value string) (Section, error) {
	normalized := Section(strings.ToLower(strings.TrimSpace(value)))
	for _, section := range Sections {
		if section == normalized {
			return section, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, value)
}

// Kind returns the draft kind edited in this section.
func (s Section) Kind() Kind {
	switch s {
	case SectionHero:
		return KindHero
	case SectionFeatured, SectionProjects:
		return KindProject
	case SectionExperiences:
		return KindExperience
	case SectionSettings:
		return KindSettings
	}
	return ""
}

// Listed reports whether the section holds indexed entries rather than a singleton.
func (s Section) Listed() bool {
	switch s {
	case SectionFeatured, SectionProjects, SectionExperiences:
		return true
	}
	return false
}
