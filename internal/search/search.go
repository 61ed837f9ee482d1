// Package search finds projects and experiences by text. Meilisearch is used
// when reachable; Postgres full-text search is the fallback.
package search

import (
	"strconv"

	"portfolio/cms/internal/content"
)

type ResultType string

const (
	ResultProject    ResultType = "project"
	ResultExperience ResultType = "experience"
)

type Result struct {
	Type    ResultType `json:"type"`
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
}

type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ProjectRecord is the indexed form of a project.
type ProjectRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	IsFeatured   bool     `json:"is_featured"`
}

// ExperienceRecord is the indexed form of an experience.
type ExperienceRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

func ProjectRecordFrom(p content.Project) ProjectRecord {
	return ProjectRecord{
		ID:           strconv.FormatInt(p.ID, 10),
		Title:        p.Title,
		Description:  p.Description,
		Technologies: p.Technologies,
		IsFeatured:   p.IsFeatured,
	}
}

func ExperienceRecordFrom(e content.Experience) ExperienceRecord {
	return ExperienceRecord{
		ID:          strconv.FormatInt(e.ID, 10),
		Title:       e.Title,
		Company:     e.Company,
		Location:    e.Location,
		Description: e.Description,
		Skills:      e.Skills,
	}
}
