package editor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/cms/internal/content"
	"portfolio/cms/internal/contentstore"
	"portfolio/cms/internal/draft"
	"portfolio/cms/internal/gateway"
)

type fakeFetcher struct {
	portfolio content.Portfolio
	fetchFn   func() (content.Portfolio, error)
	calls     int
}

func (f *fakeFetcher) FetchPortfolio(context.Context) (content.Portfolio, error) {
	f.calls++
	if f.fetchFn != nil {
		return f.fetchFn()
	}
	return f.portfolio, nil
}

type fakeGateway struct {
	calls []string
	ids   []int64
	sent  []draft.Draft

	err      error
	reloadFn func() error
}

func (f *fakeGateway) record(op string, id int64, d draft.Draft) error {
	f.calls = append(f.calls, op)
	f.ids = append(f.ids, id)
	if d != nil {
		f.sent = append(f.sent, d.Clone())
	}
	return f.err
}

func (f *fakeGateway) SaveHero(_ context.Context, d draft.Draft) error {
	return f.record("save_hero", 0, d)
}
func (f *fakeGateway) CreateProject(_ context.Context, d draft.Draft) error {
	return f.record("create_project", 0, d)
}
func (f *fakeGateway) UpdateProject(_ context.Context, id int64, d draft.Draft) error {
	return f.record("update_project", id, d)
}
func (f *fakeGateway) DeleteProject(_ context.Context, id int64) error {
	return f.record("delete_project", id, nil)
}
func (f *fakeGateway) ToggleFeatured(_ context.Context, id int64) error {
	return f.record("toggle_featured", id, nil)
}
func (f *fakeGateway) CreateExperience(_ context.Context, d draft.Draft) error {
	return f.record("create_experience", 0, d)
}
func (f *fakeGateway) UpdateExperience(_ context.Context, id int64, d draft.Draft) error {
	return f.record("update_experience", id, d)
}
func (f *fakeGateway) DeleteExperience(_ context.Context, id int64) error {
	return f.record("delete_experience", id, nil)
}
func (f *fakeGateway) SaveSettings(_ context.Context, d draft.Draft) error {
	return f.record("save_settings", 0, d)
}
func (f *fakeGateway) Reload(context.Context) error {
	f.calls = append(f.calls, "reload")
	if f.reloadFn != nil {
		return f.reloadFn()
	}
	return nil
}

func samplePortfolio() content.Portfolio {
	image := "/uploads/ada.png"
	return content.Portfolio{
		Hero: &content.Hero{Name: "Ada", Title: "Engineer", ProfileImage: &image},
		Projects: []content.Project{
			{ID: 10, Title: "Alpha", Technologies: []string{"Go"}},
			{ID: 11, Title: "Beta", Technologies: []string{"React", "Node.js"}, IsFeatured: true},
		},
		Experiences: []content.Experience{{ID: 20, Title: "Engineer", Company: "Acme", Skills: []string{"Go", "SQL"}}},
		Settings:    &content.Settings{FontSize: content.FontLarge, Theme: content.ThemeDark},
	}
}

func loadedStore(t *testing.T, fetcher *fakeFetcher) *contentstore.Store {
	t.Helper()
	store := contentstore.New(fetcher, nil)
	require.NoError(t, store.Load(context.Background()))
	return store
}

func intPtr(i int) *int { return &i }

func acceptAll() Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
}

func TestStartEditThenCancelIssuesNothing(t *testing.T) {
	starts := []struct {
		section draft.Section
		index   *int
	}{
		{draft.SectionHero, nil},
		{draft.SectionSettings, nil},
		{draft.SectionFeatured, nil},
		{draft.SectionFeatured, intPtr(0)},
		{draft.SectionProjects, nil},
		{draft.SectionProjects, intPtr(1)},
		{draft.SectionExperiences, nil},
		{draft.SectionExperiences, intPtr(0)},
	}
	for _, start := range starts {
		fetcher := &fakeFetcher{portfolio: samplePortfolio()}
		store := loadedStore(t, fetcher)
		before := store.Snapshot()
		gw := &fakeGateway{}
		session := New(store, gw, acceptAll(), nil)

		require.NoError(t, session.StartEdit(start.section, start.index))
		assert.Equal(t, Editing, session.State())
		require.NoError(t, session.Set(firstField(session.Draft()), "changed"))
		session.Cancel()

		assert.Equal(t, Idle, session.State())
		assert.Nil(t, session.Draft())
		assert.Empty(t, gw.calls)
		assert.Equal(t, 1, fetcher.calls)
		assert.Equal(t, before, store.Snapshot())
	}
}

func firstField(d draft.Draft) string {
	return d.Fields()[0].Name
}

func TestStartEditStagesEditableText(t *testing.T) {
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), &fakeGateway{}, nil, nil)

	require.NoError(t, session.StartEdit(draft.SectionProjects, intPtr(1)))
	project := session.Draft().(*draft.Project)
	assert.Equal(t, "React, Node.js", project.Technologies)

	target, editing := session.Target()
	require.True(t, editing)
	assert.Equal(t, int64(11), target.ID)

	require.NoError(t, session.StartEdit(draft.SectionHero, intPtr(5)))
	hero := session.Draft().(*draft.Hero)
	assert.Equal(t, "/uploads/ada.png", hero.ProfileImage)
	target, _ = session.Target()
	assert.Nil(t, target.Index)
}

func TestStartEditOutOfRange(t *testing.T) {
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), &fakeGateway{}, nil, nil)
	require.NoError(t, session.StartEdit(draft.SectionHero, nil))

	err := session.StartEdit(draft.SectionFeatured, intPtr(1))
	require.ErrorIs(t, err, ErrNoSuchEntry)
	err = session.StartEdit(draft.SectionExperiences, intPtr(-1))
	require.ErrorIs(t, err, ErrNoSuchEntry)

	// state unchanged
	target, editing := session.Target()
	assert.True(t, editing)
	assert.Equal(t, draft.SectionHero, target.Section)
}

func TestStartEditUnknownSection(t *testing.T) {
	session := New(loadedStore(t, &fakeFetcher{}), &fakeGateway{}, nil, nil)
	assert.ErrorIs(t, session.StartEdit("blog", nil), draft.ErrUnknownSection)
}

func TestTemplatesByListedSection(t *testing.T) {
	gw := &fakeGateway{}
	session := New(loadedStore(t, &fakeFetcher{}), gw, nil, nil)

	require.NoError(t, session.StartEdit(draft.SectionFeatured, nil))
	assert.True(t, session.Draft().(*draft.Project).IsFeatured)

	require.NoError(t, session.StartEdit(draft.SectionProjects, nil))
	assert.False(t, session.Draft().(*draft.Project).IsFeatured)
	require.NoError(t, session.Set("is_featured", "true"))
	assert.True(t, session.Draft().(*draft.Project).IsFeatured)

	require.NoError(t, session.StartEdit(draft.SectionExperiences, nil))
	assert.Equal(t, &draft.Experience{}, session.Draft())
}

func TestSaveFeaturedForcesFlag(t *testing.T) {
	gw := &fakeGateway{}
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), gw, nil, nil)

	require.NoError(t, session.StartEdit(draft.SectionFeatured, intPtr(0)))
	require.NoError(t, session.Set("is_featured", "false"))
	require.NoError(t, session.Save(context.Background()))

	assert.Equal(t, []string{"update_project"}, gw.calls)
	assert.Equal(t, int64(11), gw.ids[0])
	assert.True(t, gw.sent[0].(*draft.Project).IsFeatured)
}

func TestSaveDispatchesBySection(t *testing.T) {
	cases := []struct {
		section draft.Section
		index   *int
		op      string
		id      int64
	}{
		{draft.SectionHero, nil, "save_hero", 0},
		{draft.SectionSettings, nil, "save_settings", 0},
		{draft.SectionProjects, nil, "create_project", 0},
		{draft.SectionProjects, intPtr(0), "update_project", 10},
		{draft.SectionExperiences, nil, "create_experience", 0},
		{draft.SectionExperiences, intPtr(0), "update_experience", 20},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			gw := &fakeGateway{}
			session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), gw, nil, nil)
			require.NoError(t, session.StartEdit(tc.section, tc.index))
			require.NoError(t, session.Save(context.Background()))
			assert.Equal(t, []string{tc.op}, gw.calls)
			assert.Equal(t, tc.id, gw.ids[0])
			assert.Equal(t, Idle, session.State())
		})
	}
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	gw := &fakeGateway{err: content.NewFailure(content.SaveFailure, errors.New("500"))}
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), gw, nil, nil)

	require.NoError(t, session.StartEdit(draft.SectionExperiences, intPtr(0)))
	require.NoError(t, session.Set("company", "Globex"))
	err := session.Save(context.Background())
	require.Error(t, err)

	assert.Equal(t, Editing, session.State())
	assert.Equal(t, "Globex", session.Draft().(*draft.Experience).Company)
	assert.Equal(t, "Failed to save data", content.Message(session.Err()))
	assert.False(t, session.Loading())

	session.ClearErr()
	assert.NoError(t, session.Err())
}

func TestSaveWithFailedReloadStillGoesIdle(t *testing.T) {
	gw := &fakeGateway{err: content.NewFailure(content.LoadFailure, errors.New("offline"))}
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), gw, nil, nil)

	require.NoError(t, session.StartEdit(draft.SectionHero, nil))
	err := session.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, Idle, session.State())
	assert.Equal(t, "Failed to load data", content.Message(session.Err()))
}

func TestSaveWhenIdle(t *testing.T) {
	session := New(loadedStore(t, &fakeFetcher{}), &fakeGateway{}, nil, nil)
	assert.ErrorIs(t, session.Save(context.Background()), ErrNotEditing)
	assert.ErrorIs(t, session.Set("title", "x"), ErrNotEditing)
}

func TestSetDraftChecksKind(t *testing.T) {
	session := New(loadedStore(t, &fakeFetcher{}), &fakeGateway{}, nil, nil)
	require.NoError(t, session.StartEdit(draft.SectionProjects, nil))
	assert.ErrorIs(t, session.SetDraft(&draft.Experience{}), ErrDraftKind)
	require.NoError(t, session.SetDraft(&draft.Project{Title: "Swapped"}))
	assert.Equal(t, "Swapped", session.Draft().(*draft.Project).Title)
}

func TestDeclinedDeleteIssuesNothing(t *testing.T) {
	fetcher := &fakeFetcher{portfolio: samplePortfolio()}
	store := loadedStore(t, fetcher)
	gw := &fakeGateway{}
	var prompts []string
	decline := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return false, nil
	})
	session := New(store, gw, decline, nil)

	err := session.Delete(context.Background(), draft.SectionProjects, 0)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Empty(t, gw.calls)
	assert.Len(t, store.Projects(), 2)
	assert.Equal(t, []string{DeletePrompt}, prompts)
	assert.NoError(t, session.Err())
}

func TestDeleteRoutesByEntityID(t *testing.T) {
	gw := &fakeGateway{}
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), gw, acceptAll(), nil)

	require.NoError(t, session.Delete(context.Background(), draft.SectionFeatured, 0))
	require.NoError(t, session.Delete(context.Background(), draft.SectionExperiences, 0))
	assert.Equal(t, []string{"delete_project", "delete_experience"}, gw.calls)
	assert.Equal(t, []int64{11, 20}, gw.ids)

	assert.ErrorIs(t, session.Delete(context.Background(), draft.SectionHero, 0), ErrNotDeletable)
	assert.ErrorIs(t, session.Delete(context.Background(), draft.SectionProjects, 7), ErrNoSuchEntry)
}

func TestDeleteFailureSetsBanner(t *testing.T) {
	gw := &fakeGateway{err: content.NewFailure(content.DeleteFailure, errors.New("500"))}
	session := New(loadedStore(t, &fakeFetcher{portfolio: samplePortfolio()}), gw, acceptAll(), nil)
	require.Error(t, session.Delete(context.Background(), draft.SectionProjects, 1))
	assert.Equal(t, "Failed to delete item", content.Message(session.Err()))
}

func TestBusyGate(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &fakeGateway{reloadFn: func() error {
		close(entered)
		<-release
		return nil
	}}
	session := New(loadedStore(t, &fakeFetcher{}), gw, acceptAll(), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = session.Refresh(context.Background())
	}()
	<-entered
	assert.True(t, session.Loading())
	assert.ErrorIs(t, session.ToggleFeatured(context.Background(), 1), ErrBusy)
	close(release)
	wg.Wait()
	assert.False(t, session.Loading())
}

func TestContextCarriesSession(t *testing.T) {
	session := New(loadedStore(t, &fakeFetcher{}), &fakeGateway{}, nil, nil)
	got, ok := FromContext(WithSession(context.Background(), session))
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

// The tests below run the session against the real store, gateway and
// REST client with an httptest backend.

type backend struct {
	mu         sync.Mutex
	portfolio  content.Portfolio
	requests   []string
	bodies     []map[string]any
	failWrites bool
	gets       int
}

func (b *backend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			b.gets++
			require.NoError(t, json.NewEncoder(w).Encode(b.portfolio))
			return
		}
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &body))
		}
		b.bodies = append(b.bodies, body)
		if b.failWrites {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail": "boom"}`))
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects":
			var p content.Project
			require.NoError(t, json.Unmarshal(raw, &p))
			p.ID = int64(len(b.portfolio.Projects) + 1)
			b.portfolio.Projects = append(b.portfolio.Projects, p)
			require.NoError(t, json.NewEncoder(w).Encode(p))
		case r.Method == http.MethodPatch && r.URL.Path == "/projects/1/toggle-featured":
			b.portfolio.Projects[0].IsFeatured = !b.portfolio.Projects[0].IsFeatured
			_, _ = w.Write([]byte(`{"project_id": 1, "is_featured": true}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
}

func wire(t *testing.T, b *backend) (*Session, *contentstore.Store) {
	t.Helper()
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)
	client, err := gateway.NewClient(srv.URL)
	require.NoError(t, err)
	store := contentstore.New(client, nil)
	require.NoError(t, store.Load(context.Background()))
	session := New(store, gateway.New(client, store, nil), acceptAll(), nil)
	return session, store
}

func TestDemoProjectScenario(t *testing.T) {
	b := &backend{portfolio: content.Portfolio{Projects: []content.Project{}}}
	session, store := wire(t, b)
	require.Empty(t, store.Projects())

	require.NoError(t, session.StartEdit(draft.SectionProjects, nil))
	require.NoError(t, session.Set("title", "Demo"))
	require.NoError(t, session.Set("technologies", "React, Go"))
	require.NoError(t, session.Save(context.Background()))

	require.Equal(t, []string{"POST /projects"}, b.requests)
	body := b.bodies[0]
	assert.Equal(t, "Demo", body["title"])
	assert.Equal(t, []any{"React", "Go"}, body["technologies"])
	assert.Equal(t, false, body["is_featured"])

	assert.Equal(t, 2, b.gets)
	assert.Equal(t, 2, store.Loads())
	assert.Equal(t, Idle, session.State())
	require.Len(t, store.Projects(), 1)
	assert.Equal(t, "Demo", store.Projects()[0].Title)
}

func TestSuccessfulDeleteReloadsExactlyOnce(t *testing.T) {
	b := &backend{portfolio: content.Portfolio{Projects: []content.Project{{ID: 1, Title: "Old"}}}}
	session, store := wire(t, b)

	require.NoError(t, session.Delete(context.Background(), draft.SectionProjects, 0))
	assert.Equal(t, []string{"DELETE /projects/1"}, b.requests)
	assert.Equal(t, 2, b.gets)
	assert.Equal(t, 2, store.Loads())
}

func TestToggleOnlyChangesAfterReload(t *testing.T) {
	b := &backend{portfolio: content.Portfolio{Projects: []content.Project{{ID: 1, Title: "P"}}}}
	session, store := wire(t, b)
	require.Empty(t, store.Featured())

	require.NoError(t, session.ToggleFeatured(context.Background(), 1))
	assert.Equal(t, []string{"PATCH /projects/1/toggle-featured"}, b.requests)
	assert.Equal(t, 2, b.gets)
	require.Len(t, store.Featured(), 1)
	assert.True(t, store.Projects()[0].IsFeatured)
}

func TestFailedToggleLeavesStoreUntouched(t *testing.T) {
	b := &backend{
		portfolio:  content.Portfolio{Projects: []content.Project{{ID: 1, Title: "P"}}},
		failWrites: true,
	}
	session, store := wire(t, b)

	err := session.ToggleFeatured(context.Background(), 1)
	require.Error(t, err)
	assert.Len(t, b.requests, 1)
	assert.Equal(t, 1, b.gets)
	assert.Empty(t, store.Featured())
	assert.False(t, store.Projects()[0].IsFeatured)
	assert.Equal(t, "Failed to toggle featured status", content.Message(session.Err()))
}
