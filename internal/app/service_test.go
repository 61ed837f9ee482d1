package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/cms/internal/content"
	"portfolio/cms/internal/export"
	"portfolio/cms/internal/gitrepo"
	"portfolio/cms/internal/search"
	"portfolio/cms/internal/store"
)

func TestBootstrapSeedsEmptyStore(t *testing.T) {
	var seeded content.Hero
	fs := &fakeStore{
		isEmptyFn: func(context.Context) (bool, error) { return true, nil },
		saveHeroFn: func(_ context.Context, hero content.Hero) (content.Hero, error) {
			seeded = hero
			return hero, nil
		},
	}
	fg := &fakeGit{}
	fsearch := &fakeSearch{}
	svc := newTestService(t, fs, fg)
	svc.search = fsearch
	svc.cfg.Seed = true

	require.NoError(t, svc.Bootstrap(context.Background()))
	assert.Equal(t, "Your Name", seeded.Name)
	assert.Equal(t, []string{"bootstrap portfolio"}, fg.recorded())
	assert.Equal(t, 1, fsearch.reindexs)
}

func TestBootstrapSkipsSeedWhenDisabled(t *testing.T) {
	fs := &fakeStore{
		isEmptyFn: func(context.Context) (bool, error) {
			t.Fatal("IsEmpty must not be called when seeding is off")
			return false, nil
		},
	}
	svc := newTestService(t, fs, &fakeGit{})
	require.NoError(t, svc.Bootstrap(context.Background()))
}

func TestHistoryFailureDoesNotFailWrite(t *testing.T) {
	fg := &fakeGit{
		recordFn: func(content.Portfolio, string, string) (gitrepo.CommitInfo, error) {
			return gitrepo.CommitInfo{}, errors.New("disk full")
		},
	}
	svc := newTestService(t, &fakeStore{}, fg)

	created, err := svc.CreateExperience(context.Background(), Session{Subject: "admin"}, content.Experience{Title: "Dev"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, []string{"create experience 1"}, fg.recorded())
}

func TestUnchangedPortfolioIsNotAnError(t *testing.T) {
	fg := &fakeGit{
		recordFn: func(content.Portfolio, string, string) (gitrepo.CommitInfo, error) {
			return gitrepo.CommitInfo{Hash: "abc1234"}, gitrepo.ErrNoChanges
		},
	}
	svc := newTestService(t, &fakeStore{}, fg)
	theme := content.ThemeDark
	_, err := svc.UpdateSettings(context.Background(), Session{}, store.SettingsPatch{Theme: &theme})
	require.NoError(t, err)
}

func TestSaveHeroDropsBlankImage(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeGit{})
	blank := "  "
	saved, err := svc.SaveHero(context.Background(), Session{}, content.Hero{Name: "Ada", ProfileImage: &blank})
	require.NoError(t, err)
	assert.Nil(t, saved.ProfileImage)
}

func TestVersionNotFound(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeGit{})
	_, _, err := svc.Version("deadbeef")

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusNotFound, domainErr.Status)
}

type fakeExporter struct {
	err error
}

func (f fakeExporter) Export(context.Context, export.Format) (*export.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &export.Result{Data: []byte("<html>"), Filename: "portfolio.html", MimeType: "text/html"}, nil
}

func TestExportMapsMissingChrome(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeGit{})
	svc.exporter = fakeExporter{err: export.ErrPDFDependencyMissing}

	_, err := svc.Export(context.Background(), export.FormatPDF)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusServiceUnavailable, domainErr.Status)

	svc.exporter = fakeExporter{}
	result, err := svc.Export(context.Background(), export.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "portfolio.html", result.Filename)
}

func TestUploadWithoutStorageIsUnavailable(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeGit{})
	_, err := svc.Upload(context.Background(), "a.png", "image/png", nil)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UPLOADS_UNAVAILABLE", domainErr.Code)
}

func TestSearchWithoutBackendIsEmpty(t *testing.T) {
	svc := newTestService(t, &fakeStore{}, &fakeGit{})
	resp := svc.Search(context.Background(), search.Query{Text: "go", Limit: 10})
	assert.Empty(t, resp.Results)
	assert.Equal(t, "go", resp.Query)
}
