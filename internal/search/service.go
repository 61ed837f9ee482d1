package search

import (
	"context"
	"log/slog"

	"portfolio/cms/internal/content"
)

// Searcher is one search backend.
type Searcher interface {
	Healthy() bool
	Search(ctx context.Context, q Query) ([]Result, int, error)
}

// Indexer receives writes. Only Meilisearch needs them; Postgres FTS reads the
// tables directly.
type Indexer interface {
	Healthy() bool
	IndexProjects(records ...ProjectRecord) error
	IndexExperiences(records ...ExperienceRecord) error
	DeleteProject(id int64) error
	DeleteExperience(id int64) error
}

// Primary is a backend that both searches and indexes.
type Primary interface {
	Searcher
	Indexer
}

type recordLoader interface {
	LoadAllRecords(ctx context.Context) ([]ProjectRecord, []ExperienceRecord, error)
}

// Service tries the primary backend first and falls back to Postgres.
type Service struct {
	primary  Primary
	fallback Searcher
	logger   *slog.Logger
}

// NewService creates the facade. primary may be nil when Meilisearch is not
// configured.
func NewService(primary Primary, fallback Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if m, ok := primary.(*Meili); ok && m == nil {
		primary = nil
	}
	return &Service{primary: primary, fallback: fallback, logger: logger}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primaryUp() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("search: primary failed, falling back", "error", err)
	}
	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("search: fallback failed", "error", err)
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) primaryUp() bool {
	return s.primary != nil && s.primary.Healthy()
}

// IndexProject pushes a project to the primary index in the background.
func (s *Service) IndexProject(p content.Project) {
	if !s.primaryUp() {
		return
	}
	record := ProjectRecordFrom(p)
	go func() {
		if err := s.primary.IndexProjects(record); err != nil {
			s.logger.Warn("search: index project", "id", record.ID, "error", err)
		}
	}()
}

func (s *Service) IndexExperience(e content.Experience) {
	if !s.primaryUp() {
		return
	}
	record := ExperienceRecordFrom(e)
	go func() {
		if err := s.primary.IndexExperiences(record); err != nil {
			s.logger.Warn("search: index experience", "id", record.ID, "error", err)
		}
	}()
}

func (s *Service) DeleteProject(id int64) {
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.DeleteProject(id); err != nil {
			s.logger.Warn("search: delete project", "id", id, "error", err)
		}
	}()
}

func (s *Service) DeleteExperience(id int64) {
	if !s.primaryUp() {
		return
	}
	go func() {
		if err := s.primary.DeleteExperience(id); err != nil {
			s.logger.Warn("search: delete experience", "id", id, "error", err)
		}
	}()
}

// ReindexAll pushes every record to the primary index synchronously.
func (s *Service) ReindexAll(projects []ProjectRecord, experiences []ExperienceRecord) {
	if !s.primaryUp() {
		return
	}
	if err := s.primary.IndexProjects(projects...); err != nil {
		s.logger.Warn("search: reindex projects", "error", err)
	}
	if err := s.primary.IndexExperiences(experiences...); err != nil {
		s.logger.Warn("search: reindex experiences", "error", err)
	}
}

// ReindexAllFromPG loads every row through the fallback and reindexes it.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	loader, ok := s.fallback.(recordLoader)
	if !s.primaryUp() || !ok {
		return
	}
	projects, experiences, err := loader.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn("search: reindex load failed", "error", err)
		return
	}
	s.ReindexAll(projects, experiences)
	s.logger.Info("search: reindexed", "projects", len(projects), "experiences", len(experiences))
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
