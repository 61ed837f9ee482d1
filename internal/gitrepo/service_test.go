package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"portfolio/cms/internal/content"
)

func samplePortfolio() content.Portfolio {
	settings := content.DefaultSettings()
	return content.Portfolio{
		Hero:     &content.Hero{ID: 1, Name: "Ada", Title: "Engineer"},
		Projects: []content.Project{{ID: 1, Title: "Demo", Technologies: []string{"Go"}}},
		Settings: &settings,
	}
}

func TestRecordLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	svc := New(dir)

	first, err := svc.Record(samplePortfolio(), "admin", "create project 1")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if first.Hash == "" || first.Author != "admin" {
		t.Fatalf("unexpected commit: %+v", first)
	}
	if _, err := os.Stat(filepath.Join(dir, fileName)); err != nil {
		t.Fatalf("portfolio.json missing: %v", err)
	}

	updated := samplePortfolio()
	updated.Projects[0].IsFeatured = true
	second, err := svc.Record(updated, "admin", "toggle featured project 1")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	history, err := svc.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(history))
	}
	if history[0].Hash != second.Hash || history[1].Hash != first.Hash {
		t.Fatalf("history not newest first: %+v", history)
	}

	version, changed, err := svc.Version(second.Hash)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if !version.Projects[0].IsFeatured {
		t.Fatalf("unexpected content: %+v", version.Projects)
	}
	if len(version.FeaturedProjects) != 1 {
		t.Fatalf("featured list should be derived in the stored file, got %+v", version.FeaturedProjects)
	}
	if !reflect.DeepEqual(changed, []string{"projects"}) {
		t.Fatalf("unexpected changed sections: %v", changed)
	}
}

func TestRecordSkipsUnchangedPortfolio(t *testing.T) {
	svc := New(t.TempDir())
	first, err := svc.Record(samplePortfolio(), "admin", "seed")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	again, err := svc.Record(samplePortfolio(), "admin", "noop")
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
	if again.Hash != first.Hash {
		t.Fatalf("expected head commit %s, got %s", first.Hash, again.Hash)
	}
}

func TestHistoryLimitAndEmptyRepo(t *testing.T) {
	svc := New(filepath.Join(t.TempDir(), "missing"))
	history, err := svc.History(5)
	if err != nil {
		t.Fatalf("History() on missing repo error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}

	for i := 0; i < 3; i++ {
		p := samplePortfolio()
		p.Hero.Title = fmt.Sprintf("Engineer %d", i)
		if _, err := svc.Record(p, "admin", fmt.Sprintf("update hero %d", i)); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}
	history, err = svc.History(2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected limit 2, got %d", len(history))
	}
	if !strings.HasPrefix(history[0].Message, "update hero 2") {
		t.Fatalf("unexpected head message %q", history[0].Message)
	}
}

func TestFirstVersionComparesAgainstEmpty(t *testing.T) {
	svc := New(t.TempDir())
	commit, err := svc.Record(samplePortfolio(), "admin", "seed")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	_, changed, err := svc.Version(commit.Hash)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if !reflect.DeepEqual(changed, []string{"hero", "projects"}) {
		t.Fatalf("unexpected changed sections: %v", changed)
	}
}

func TestConcurrentRecords(t *testing.T) {
	svc := New(t.TempDir())
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := samplePortfolio()
			p.Hero.Name = fmt.Sprintf("Ada %d", i)
			if _, err := svc.Record(p, "admin", "update hero"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Record() error = %v", err)
	}

	history, err := svc.History(0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 8 {
		t.Fatalf("expected 8 commits, got %d", len(history))
	}
}

func TestSanitizeEmail(t *testing.T) {
	cases := map[string]string{
		"Ada Lovelace": "Ada.Lovelace",
		"admin":        "admin",
		"!!!":          "admin",
	}
	for input, want := range cases {
		if got := sanitizeEmail(input); got != want {
			t.Errorf("sanitizeEmail(%q) = %q, want %q", input, got, want)
		}
	}
}
