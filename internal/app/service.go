package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/cms/internal/auth"
	"portfolio/cms/internal/authpw"
	"portfolio/cms/internal/config"
	"portfolio/cms/internal/content"
	"portfolio/cms/internal/export"
	"portfolio/cms/internal/gitrepo"
	"portfolio/cms/internal/search"
	"portfolio/cms/internal/store"
	"portfolio/cms/internal/uploads"
)

// Session is an authenticated admin request.
type Session struct {
	Token        string
	RefreshToken string
	Subject      string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	Hero(context.Context) (*content.Hero, error)
	SaveHero(context.Context, content.Hero) (content.Hero, error)
	ListProjects(context.Context, bool) ([]content.Project, error)
	CreateProject(context.Context, content.Project) (content.Project, error)
	UpdateProject(context.Context, int64, store.ProjectPatch) (content.Project, error)
	DeleteProject(context.Context, int64) error
	ToggleFeatured(context.Context, int64) (bool, error)
	GetProject(context.Context, int64) (content.Project, error)
	ListExperiences(context.Context) ([]content.Experience, error)
	CreateExperience(context.Context, content.Experience) (content.Experience, error)
	UpdateExperience(context.Context, int64, store.ExperiencePatch) (content.Experience, error)
	DeleteExperience(context.Context, int64) error
	Settings(context.Context) (content.Settings, error)
	UpdateSettings(context.Context, store.SettingsPatch) (content.Settings, error)
	Portfolio(context.Context) (content.Portfolio, error)
	IsEmpty(context.Context) (bool, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(context.Context) error
}

// sessionStore holds refresh sessions; Postgres by default, Redis when configured.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (string, error)
	RevokeRefreshSession(context.Context, string) error
}

type gitService interface {
	Record(content.Portfolio, string, string) (gitrepo.CommitInfo, error)
	History(int) ([]gitrepo.CommitInfo, error)
	Version(string) (content.Portfolio, []string, error)
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexProject(content.Project)
	IndexExperience(content.Experience)
	DeleteProject(int64)
	DeleteExperience(int64)
	ReindexAllFromPG(context.Context)
}

type portfolioCache interface {
	Get(context.Context) (content.Portfolio, bool, error)
	Set(context.Context, content.Portfolio) error
	Invalidate(context.Context) error
}

type uploadService interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (uploads.Stored, error)
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

type exportService interface {
	Export(context.Context, export.Format) (*export.Result, error)
}

type Service struct {
	cfg      config.API
	store    dataStore
	sessions sessionStore
	git      gitService
	search   searchService
	cache    portfolioCache
	uploads  uploadService
	exporter exportService
	admin    *authpw.Service
	logger   *slog.Logger
}

type Option func(*Service)

func WithCache(c portfolioCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithUploads(u uploadService) Option {
	return func(s *Service) { s.uploads = u }
}

func WithExporter(e exportService) Option {
	return func(s *Service) { s.exporter = e }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New keeps refresh sessions in Postgres.
func New(cfg config.API, dataStore *store.PostgresStore, gitService *gitrepo.Service, searchSvc *search.Service, opts ...Option) (*Service, error) {
	return NewWithSessionStore(cfg, dataStore, dataStore, gitService, searchSvc, opts...)
}

// NewWithSessionStore keeps refresh sessions in the given store, e.g. Redis.
func NewWithSessionStore(cfg config.API, dataStore *store.PostgresStore, sessions sessionStore, gitService *gitrepo.Service, searchSvc *search.Service, opts ...Option) (*Service, error) {
	admin, err := authpw.NewService(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("configure admin credentials: %w", err)
	}
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		admin:    admin,
		logger:   slog.Default(),
	}
	if gitService != nil {
		s.git = gitService
	}
	if searchSvc != nil {
		s.search = searchSvc
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bootstrap seeds an empty database when enabled, records the initial
// history commit and rebuilds the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.Seed {
		empty, err := s.store.IsEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			if _, err := s.store.SaveHero(ctx, content.Hero{
				Name:        "Your Name",
				Title:       "Software Developer",
				Description: "Welcome to my portfolio. Edit this text from the admin.",
			}); err != nil {
				return fmt.Errorf("seed hero: %w", err)
			}
			s.logger.Info("seeded empty portfolio")
		}
	}
	if _, err := s.store.Settings(ctx); err != nil {
		return err
	}
	s.afterWrite(ctx, "system", "bootstrap portfolio")
	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Portfolio returns the public payload, served from the cache when warm.
func (s *Service) Portfolio(ctx context.Context) (content.Portfolio, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("portfolio cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}
	portfolio, err := s.store.Portfolio(ctx)
	if err != nil {
		return content.Portfolio{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, portfolio); err != nil {
			s.logger.Warn("portfolio cache write failed", "error", err)
		}
	}
	return portfolio, nil
}

func (s *Service) Hero(ctx context.Context) (*content.Hero, error) {
	return s.store.Hero(ctx)
}

// SaveHero creates or fully replaces the hero.
func (s *Service) SaveHero(ctx context.Context, session Session, hero content.Hero) (content.Hero, error) {
	if hero.ProfileImage != nil && strings.TrimSpace(*hero.ProfileImage) == "" {
		hero.ProfileImage = nil
	}
	saved, err := s.store.SaveHero(ctx, hero)
	if err != nil {
		return content.Hero{}, err
	}
	s.afterWrite(ctx, session.Subject, "update hero")
	return saved, nil
}

func (s *Service) Projects(ctx context.Context, featuredOnly bool) ([]content.Project, error) {
	return s.store.ListProjects(ctx, featuredOnly)
}

func (s *Service) CreateProject(ctx context.Context, session Session, project content.Project) (content.Project, error) {
	project.ID = 0
	created, err := s.store.CreateProject(ctx, project)
	if err != nil {
		return content.Project{}, err
	}
	s.indexProject(created)
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("create project %d", created.ID))
	return created, nil
}

func (s *Service) UpdateProject(ctx context.Context, session Session, id int64, patch store.ProjectPatch) (content.Project, error) {
	updated, err := s.store.UpdateProject(ctx, id, patch)
	if err != nil {
		return content.Project{}, notFound(err, "Project not found")
	}
	s.indexProject(updated)
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("update project %d", id))
	return updated, nil
}

func (s *Service) DeleteProject(ctx context.Context, session Session, id int64) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return notFound(err, "Project not found")
	}
	s.deleteProject(id)
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("delete project %d", id))
	return nil
}

// ToggleFeatured flips is_featured and returns the new value.
func (s *Service) ToggleFeatured(ctx context.Context, session Session, id int64) (bool, error) {
	featured, err := s.store.ToggleFeatured(ctx, id)
	if err != nil {
		return false, notFound(err, "Project not found")
	}
	if project, err := s.store.GetProject(ctx, id); err == nil {
		s.indexProject(project)
	}
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("toggle featured project %d", id))
	return featured, nil
}

func (s *Service) Experiences(ctx context.Context) ([]content.Experience, error) {
	return s.store.ListExperiences(ctx)
}

func (s *Service) CreateExperience(ctx context.Context, session Session, experience content.Experience) (content.Experience, error) {
	experience.ID = 0
	created, err := s.store.CreateExperience(ctx, experience)
	if err != nil {
		return content.Experience{}, err
	}
	s.indexExperience(created)
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("create experience %d", created.ID))
	return created, nil
}

func (s *Service) UpdateExperience(ctx context.Context, session Session, id int64, patch store.ExperiencePatch) (content.Experience, error) {
	updated, err := s.store.UpdateExperience(ctx, id, patch)
	if err != nil {
		return content.Experience{}, notFound(err, "Experience not found")
	}
	s.indexExperience(updated)
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("update experience %d", id))
	return updated, nil
}

func (s *Service) DeleteExperience(ctx context.Context, session Session, id int64) error {
	if err := s.store.DeleteExperience(ctx, id); err != nil {
		return notFound(err, "Experience not found")
	}
	s.deleteExperience(id)
	s.afterWrite(ctx, session.Subject, fmt.Sprintf("delete experience %d", id))
	return nil
}

func (s *Service) Settings(ctx context.Context) (content.Settings, error) {
	return s.store.Settings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, session Session, patch store.SettingsPatch) (content.Settings, error) {
	if patch.FontSize != nil && !slices.Contains(content.FontSizes, *patch.FontSize) {
		return content.Settings{}, validationError("font_size must be one of " + strings.Join(content.FontSizes, ", "))
	}
	if patch.Theme != nil && !slices.Contains(content.Themes, *patch.Theme) {
		return content.Settings{}, validationError("theme must be one of " + strings.Join(content.Themes, ", "))
	}
	updated, err := s.store.UpdateSettings(ctx, patch)
	if err != nil {
		return content.Settings{}, err
	}
	s.afterWrite(ctx, session.Subject, "update settings")
	return updated, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) History(limit int) ([]gitrepo.CommitInfo, error) {
	return s.git.History(limit)
}

func (s *Service) Version(hash string) (content.Portfolio, []string, error) {
	portfolio, changed, err := s.git.Version(hash)
	if err != nil {
		return content.Portfolio{}, nil, domainError(http.StatusNotFound, "NOT_FOUND", "Version not found", nil)
	}
	return portfolio, changed, nil
}

func (s *Service) Upload(ctx context.Context, filename, contentType string, r io.Reader) (uploads.Stored, error) {
	if s.uploads == nil {
		return uploads.Stored{}, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Uploads are not configured", nil)
	}
	stored, err := s.uploads.Save(ctx, filename, contentType, r)
	switch {
	case errors.Is(err, uploads.ErrNotImage):
		return uploads.Stored{}, domainError(http.StatusBadRequest, "INVALID_FILE", "Only image files are allowed", nil)
	case errors.Is(err, uploads.ErrTooLarge):
		return uploads.Stored{}, domainError(http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size must be less than %dMB", s.maxUploadMB()), nil)
	case err != nil:
		return uploads.Stored{}, domainError(http.StatusInternalServerError, "UPLOAD_FAILED", "Could not upload file: "+err.Error(), nil)
	}
	return stored, nil
}

func (s *Service) maxUploadBytes() int64 {
	if s.cfg.MaxUploadBytes <= 0 {
		return uploads.DefaultMaxBytes
	}
	return s.cfg.MaxUploadBytes
}

func (s *Service) maxUploadMB() int64 {
	return s.maxUploadBytes() >> 20
}

func (s *Service) OpenUpload(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if s.uploads == nil {
		return nil, "", domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	rc, contentType, err := s.uploads.Open(ctx, name)
	if errors.Is(err, uploads.ErrNotFound) || errors.Is(err, uploads.ErrBadName) {
		return nil, "", domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return rc, contentType, err
}

func (s *Service) Export(ctx context.Context, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	result, err := s.exporter.Export(ctx, format)
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export requires Chrome", nil)
	}
	return result, err
}

// Login checks the admin credential and issues an access/refresh pair.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	if err := s.admin.SignIn(username, password); err != nil {
		if errors.Is(err, authpw.ErrNotConfigured) {
			s.logger.Warn("login attempted but ADMIN_PASSWORD is not set")
		}
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect username or password", nil)
	}
	return s.issueSession(ctx, s.admin.Username())
}

// Refresh rotates a refresh token: the old one is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	subject, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, subject)
}

func (s *Service) issueSession(ctx context.Context, subject string) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := uuid.NewString()

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub: subject,
		JTI: jti,
		Exp: expiresAt,
	})
	if err != nil {
		return Session{}, err
	}

	refresh, err := authpw.GenerateToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), subject, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		Subject:      subject,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		Subject:   claims.Sub,
		JTI:       claims.JTI,
		ExpiresAt: claims.Exp,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			s.logger.Warn("revoke access token failed", "error", err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("revoke refresh session failed", "error", err)
		}
	}
	return nil
}

// afterWrite drops the cached payload and commits the new state to history.
// Neither failure fails the write that triggered it.
func (s *Service) afterWrite(ctx context.Context, actor, message string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("portfolio cache invalidate failed", "error", err)
		}
	}
	if s.git == nil {
		return
	}
	portfolio, err := s.store.Portfolio(ctx)
	if err != nil {
		s.logger.Warn("history snapshot failed", "error", err)
		return
	}
	if actor == "" {
		actor = "admin"
	}
	commit, err := s.git.Record(portfolio, actor, message)
	switch {
	case errors.Is(err, gitrepo.ErrNoChanges):
	case err != nil:
		s.logger.Warn("history commit failed", "message", message, "error", err)
	default:
		s.logger.Debug("history committed", "hash", commit.Hash, "message", message)
	}
}

func (s *Service) indexProject(p content.Project) {
	if s.search != nil {
		s.search.IndexProject(p)
	}
}

func (s *Service) indexExperience(e content.Experience) {
	if s.search != nil {
		s.search.IndexExperience(e)
	}
}

func (s *Service) deleteProject(id int64) {
	if s.search != nil {
		s.search.DeleteProject(id)
	}
}

func (s *Service) deleteExperience(id int64) {
	if s.search != nil {
		s.search.DeleteExperience(id)
	}
}
