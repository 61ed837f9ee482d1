package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/cms/internal/content"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			require.NoError(t, json.Unmarshal(raw, &rec.Body))
		}
		requests = append(requests, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestFetchPortfolioDecodesLegacyKeys(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{
		"hero": {"name": "Ada", "profileImage": "/uploads/ada.png"},
		"featured_projects": [],
		"projects": [{"id": 4, "title": "Demo", "githubUrl": "https://github.com/ada/demo", "is_featured": 1}],
		"experiences": [],
		"settings": null
	}`)
	client, err := NewClient(srv.URL, WithTokenSource(StaticToken("abc")))
	require.NoError(t, err)

	portfolio, err := client.FetchPortfolio(context.Background())
	require.NoError(t, err)
	require.NotNil(t, portfolio.Hero)
	require.NotNil(t, portfolio.Hero.ProfileImage)
	assert.Equal(t, "/uploads/ada.png", *portfolio.Hero.ProfileImage)
	require.Len(t, portfolio.Projects, 1)
	assert.True(t, portfolio.Projects[0].IsFeatured)
	assert.Equal(t, "https://github.com/ada/demo", portfolio.Projects[0].GithubURL)

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodGet, (*requests)[0].Method)
	assert.Equal(t, "/", (*requests)[0].Path)
	assert.Equal(t, "Bearer abc", (*requests)[0].Auth)
}

func TestCreateProjectSendsCanonicalPayload(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{"id": 7, "title": "Demo"}`)
	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	created, err := client.CreateProject(context.Background(), content.Project{
		Title:        "Demo",
		Technologies: []string{"React", "Go"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/projects", got.Path)
	assert.Empty(t, got.Auth)
	assert.Equal(t, "Demo", got.Body["title"])
	assert.Equal(t, []any{"React", "Go"}, got.Body["technologies"])
	assert.Equal(t, false, got.Body["is_featured"])
	assert.NotContains(t, got.Body, "id")
}

func TestMutationRoutes(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{}`)
	client, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.UpdateProject(ctx, 3, content.Project{Title: "X"})
	require.NoError(t, err)
	require.NoError(t, client.DeleteProject(ctx, 3))
	_, err = client.ToggleFeatured(ctx, 3)
	require.NoError(t, err)
	_, err = client.UpdateExperience(ctx, 5, content.Experience{Title: "Y"})
	require.NoError(t, err)
	require.NoError(t, client.DeleteExperience(ctx, 5))
	_, err = client.UpdateSettings(ctx, content.DefaultSettings())
	require.NoError(t, err)
	_, err = client.SaveHero(ctx, content.Hero{Name: "Ada"})
	require.NoError(t, err)

	var routes []string
	for _, r := range *requests {
		routes = append(routes, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"PUT /projects/3",
		"DELETE /projects/3",
		"PATCH /projects/3/toggle-featured",
		"PUT /experiences/5",
		"DELETE /experiences/5",
		"PUT /settings",
		"POST /hero",
	}, routes)
}

func TestErrorResponsesBecomeAPIError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusNotFound, `{"detail": "Project not found"}`)
	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	err = client.DeleteProject(context.Background(), 99)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Project not found", apiErr.Message)
}

func TestUnauthorizedIsDetected(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusUnauthorized, `{"error": "missing token", "code": "UNAUTHORIZED"}`)
	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.UpdateSettings(context.Background(), content.DefaultSettings())
	assert.True(t, IsUnauthorized(err))
}

func TestPlaceholderTokenIsNotSent(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{}`)
	client, err := NewClient(srv.URL, WithTokenSource(StaticToken("true")))
	require.NoError(t, err)

	_, err = client.FetchPortfolio(context.Background())
	require.NoError(t, err)
	assert.Empty(t, (*requests)[0].Auth)
}

func TestRequestModifiersRun(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Client")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithRequestModifier(func(r *http.Request) *http.Request {
		r.Header.Set("X-Client", "admin-cli")
		return r
	}))
	require.NoError(t, err)
	_, err = client.FetchPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin-cli", seen)
}

func TestUploadReturnsFileURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "me.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"message": "File uploaded successfully", "file_url": "/uploads/abc.png"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	url, err := client.Upload(context.Background(), "/tmp/me.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc.png", url)
}

func TestLogin(t *testing.T) {
	srv, requests := newRecordingServer(t, http.StatusOK, `{"access_token": "tok", "token_type": "bearer"}`)
	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	token, err := client.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
	assert.Equal(t, "/auth/login", (*requests)[0].Path)
	assert.Equal(t, "admin", (*requests)[0].Body["username"])
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("localhost:8000")
	assert.Error(t, err)
}
