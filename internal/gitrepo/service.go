// Package gitrepo keeps a git history of the published portfolio. Every
// mutation rewrites portfolio.json in one repository and commits it.
package gitrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"portfolio/cms/internal/content"
)

const (
	fileName   = "portfolio.json"
	branchName = "main"
)

// ErrNoChanges is returned by Record when the portfolio matches HEAD.
var ErrNoChanges = errors.New("portfolio unchanged")

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Service {
	return &Service{dir: dir}
}

// Record writes the portfolio and commits it on main, creating the
// repository on first use.
func (s *Service) Record(portfolio content.Portfolio, author, message string) (CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return CommitInfo{}, err
	}

	payload, err := encode(portfolio)
	if err != nil {
		return CommitInfo{}, err
	}
	if head, err := headCommit(repo); err == nil {
		previous, err := readFile(head)
		if err == nil && bytes.Equal(previous, payload) {
			return toCommitInfo(head), ErrNoChanges
		}
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, fileName), payload, 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write %s: %w", fileName, err)
	}
	if _, err := worktree.Add(fileName); err != nil {
		return CommitInfo{}, fmt.Errorf("git add %s: %w", fileName, err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@portfolio.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit portfolio: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists commits newest first. A missing repository has no history.
func (s *Service) History(limit int) ([]CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := headCommit(repo)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Version returns the portfolio stored at a commit and the sections that
// changed relative to its parent.
func (s *Service) Version(hash string) (content.Portfolio, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return content.Portfolio{}, nil, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return content.Portfolio{}, nil, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return content.Portfolio{}, nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	current, err := decodeCommit(commitObj)
	if err != nil {
		return content.Portfolio{}, nil, err
	}

	var previous content.Portfolio
	if parent, err := commitObj.Parent(0); err == nil {
		if previous, err = decodeCommit(parent); err != nil {
			return content.Portfolio{}, nil, err
		}
	}
	return current, ChangedSections(previous, current), nil
}

// ChangedSections names the top-level sections that differ.
func ChangedSections(from, to content.Portfolio) []string {
	a, b := from.Snapshot(), to.Snapshot()
	pairs := map[string][2]any{
		"hero":        {a.Hero, b.Hero},
		"projects":    {a.Projects, b.Projects},
		"experiences": {a.Experiences, b.Experiences},
		"settings":    {a.Settings, b.Settings},
	}
	changed := make([]string, 0)
	for name, pair := range pairs {
		before, _ := json.Marshal(pair[0])
		after, _ := json.Marshal(pair[1])
		if !bytes.Equal(before, after) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

func (s *Service) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(s.dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branchName))); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", branchName, err)
	}
	return repo, nil
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return commitObj, nil
}

// encode renders the canonical form: the featured list is derived, keys are
// stable and the file ends in a newline.
func encode(portfolio content.Portfolio) ([]byte, error) {
	payload, err := json.MarshalIndent(portfolio.Snapshot().Portfolio(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal portfolio: %w", err)
	}
	return append(payload, '\n'), nil
}

func readFile(commitObj *object.Commit) ([]byte, error) {
	file, err := commitObj.File(fileName)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", fileName, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content bytes: %w", err)
	}
	return data, nil
}

func decodeCommit(commitObj *object.Commit) (content.Portfolio, error) {
	data, err := readFile(commitObj)
	if err != nil {
		return content.Portfolio{}, err
	}
	var portfolio content.Portfolio
	if err := json.Unmarshal(data, &portfolio); err != nil {
		return content.Portfolio{}, fmt.Errorf("decode commit content: %w", err)
	}
	return portfolio, nil
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "admin"
	}
	return string(out)
}
