package app

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"portfolio/cms/internal/authpw"
	"portfolio/cms/internal/config"
	"portfolio/cms/internal/content"
	"portfolio/cms/internal/gitrepo"
	"portfolio/cms/internal/search"
	"portfolio/cms/internal/store"
	"portfolio/cms/internal/uploads"
)

type fakeStore struct {
	heroFn             func(context.Context) (*content.Hero, error)
	saveHeroFn         func(context.Context, content.Hero) (content.Hero, error)
	listProjectsFn     func(context.Context, bool) ([]content.Project, error)
	createProjectFn    func(context.Context, content.Project) (content.Project, error)
	updateProjectFn    func(context.Context, int64, store.ProjectPatch) (content.Project, error)
	deleteProjectFn    func(context.Context, int64) error
	toggleFeaturedFn   func(context.Context, int64) (bool, error)
	getProjectFn       func(context.Context, int64) (content.Project, error)
	createExperienceFn func(context.Context, content.Experience) (content.Experience, error)
	updateExperienceFn func(context.Context, int64, store.ExperiencePatch) (content.Experience, error)
	deleteExperienceFn func(context.Context, int64) error
	updateSettingsFn   func(context.Context, store.SettingsPatch) (content.Settings, error)
	portfolioFn        func(context.Context) (content.Portfolio, error)
	isEmptyFn          func(context.Context) (bool, error)
	pingFn             func(context.Context) error

	mu             sync.Mutex
	portfolioCalls int
	revoked        map[string]time.Time
}

func (f *fakeStore) Hero(ctx context.Context) (*content.Hero, error) {
	if f.heroFn != nil {
		return f.heroFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) SaveHero(ctx context.Context, hero content.Hero) (content.Hero, error) {
	if f.saveHeroFn != nil {
		return f.saveHeroFn(ctx, hero)
	}
	hero.ID = 1
	return hero, nil
}

func (f *fakeStore) ListProjects(ctx context.Context, featuredOnly bool) ([]content.Project, error) {
	if f.listProjectsFn != nil {
		return f.listProjectsFn(ctx, featuredOnly)
	}
	return []content.Project{}, nil
}

func (f *fakeStore) CreateProject(ctx context.Context, project content.Project) (content.Project, error) {
	if f.createProjectFn != nil {
		return f.createProjectFn(ctx, project)
	}
	project.ID = 1
	return project, nil
}

func (f *fakeStore) UpdateProject(ctx context.Context, id int64, patch store.ProjectPatch) (content.Project, error) {
	if f.updateProjectFn != nil {
		return f.updateProjectFn(ctx, id, patch)
	}
	return content.Project{ID: id}, nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, id int64) error {
	if f.deleteProjectFn != nil {
		return f.deleteProjectFn(ctx, id)
	}
	return nil
}

func (f *fakeStore) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	if f.toggleFeaturedFn != nil {
		return f.toggleFeaturedFn(ctx, id)
	}
	return true, nil
}

func (f *fakeStore) GetProject(ctx context.Context, id int64) (content.Project, error) {
	if f.getProjectFn != nil {
		return f.getProjectFn(ctx, id)
	}
	return content.Project{}, sql.ErrNoRows
}

func (f *fakeStore) ListExperiences(context.Context) ([]content.Experience, error) {
	return []content.Experience{}, nil
}

func (f *fakeStore) CreateExperience(ctx context.Context, experience content.Experience) (content.Experience, error) {
	if f.createExperienceFn != nil {
		return f.createExperienceFn(ctx, experience)
	}
	experience.ID = 1
	return experience, nil
}

func (f *fakeStore) UpdateExperience(ctx context.Context, id int64, patch store.ExperiencePatch) (content.Experience, error) {
	if f.updateExperienceFn != nil {
		return f.updateExperienceFn(ctx, id, patch)
	}
	return content.Experience{ID: id}, nil
}

func (f *fakeStore) DeleteExperience(ctx context.Context, id int64) error {
	if f.deleteExperienceFn != nil {
		return f.deleteExperienceFn(ctx, id)
	}
	return nil
}

func (f *fakeStore) Settings(context.Context) (content.Settings, error) {
	return content.DefaultSettings(), nil
}

func (f *fakeStore) UpdateSettings(ctx context.Context, patch store.SettingsPatch) (content.Settings, error) {
	if f.updateSettingsFn != nil {
		return f.updateSettingsFn(ctx, patch)
	}
	return content.DefaultSettings(), nil
}

func (f *fakeStore) Portfolio(ctx context.Context) (content.Portfolio, error) {
	f.mu.Lock()
	f.portfolioCalls++
	f.mu.Unlock()
	if f.portfolioFn != nil {
		return f.portfolioFn(ctx)
	}
	return content.Portfolio{}, nil
}

func (f *fakeStore) IsEmpty(ctx context.Context) (bool, error) {
	if f.isEmptyFn != nil {
		return f.isEmptyFn(ctx)
	}
	return false, nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked == nil {
		f.revoked = make(map[string]time.Time)
	}
	f.revoked[jti] = exp
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[jti]
	return ok, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]string)}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash, subject string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tokenHash] = subject
	return nil
}

func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subject, ok := f.sessions[tokenHash]
	if !ok {
		return "", sql.ErrNoRows
	}
	return subject, nil
}

func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

type fakeGit struct {
	recordFn  func(content.Portfolio, string, string) (gitrepo.CommitInfo, error)
	historyFn func(int) ([]gitrepo.CommitInfo, error)
	versionFn func(string) (content.Portfolio, []string, error)

	mu       sync.Mutex
	messages []string
}

func (f *fakeGit) Record(portfolio content.Portfolio, author, message string) (gitrepo.CommitInfo, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.mu.Unlock()
	if f.recordFn != nil {
		return f.recordFn(portfolio, author, message)
	}
	return gitrepo.CommitInfo{Hash: "abc1234", Message: message, Author: author}, nil
}

func (f *fakeGit) History(limit int) ([]gitrepo.CommitInfo, error) {
	if f.historyFn != nil {
		return f.historyFn(limit)
	}
	return []gitrepo.CommitInfo{}, nil
}

func (f *fakeGit) Version(hash string) (content.Portfolio, []string, error) {
	if f.versionFn != nil {
		return f.versionFn(hash)
	}
	return content.Portfolio{}, nil, gitrepo.ErrNoChanges
}

func (f *fakeGit) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakeSearch struct {
	searchFn func(context.Context, search.Query) search.Response

	mu       sync.Mutex
	indexed  []int64
	deleted  []int64
	reindexs int
}

func (f *fakeSearch) Search(ctx context.Context, q search.Query) search.Response {
	if f.searchFn != nil {
		return f.searchFn(ctx, q)
	}
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexProject(p content.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, p.ID)
}

func (f *fakeSearch) IndexExperience(e content.Experience) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, e.ID)
}

func (f *fakeSearch) DeleteProject(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

func (f *fakeSearch) DeleteExperience(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

func (f *fakeSearch) ReindexAllFromPG(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reindexs++
}

type fakeCache struct {
	mu          sync.Mutex
	portfolio   *content.Portfolio
	invalidated int
}

func (f *fakeCache) Get(context.Context) (content.Portfolio, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.portfolio == nil {
		return content.Portfolio{}, false, nil
	}
	return *f.portfolio, true, nil
}

func (f *fakeCache) Set(_ context.Context, portfolio content.Portfolio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portfolio = &portfolio
	return nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portfolio = nil
	f.invalidated++
	return nil
}

func newTestService(t *testing.T, fs *fakeStore, fg *fakeGit) *Service {
	t.Helper()
	admin, err := authpw.NewService("admin", "secret")
	if err != nil {
		t.Fatalf("authpw.NewService() error = %v", err)
	}
	return &Service{
		cfg: config.API{
			JWTSecret:      "test-secret",
			AccessTTL:      time.Hour,
			RefreshTTL:     24 * time.Hour,
			MaxUploadBytes: uploads.DefaultMaxBytes,
		},
		store:    fs,
		sessions: newFakeSessions(),
		git:      fg,
		admin:    admin,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
