// Package editor holds the operator's edit session: which entry is being
// edited, the staged draft, the loading flag and the error banner.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"portfolio/cms/internal/content"
	"portfolio/cms/internal/draft"
)

var (
	ErrNoSuchEntry  = errors.New("no such entry")
	ErrNotEditing   = errors.New("no edit in progress")
	ErrBusy         = errors.New("another request is in flight")
	ErrNotDeletable = errors.New("section has no deletable entries")
	ErrDeclined     = errors.New("delete not confirmed")
	ErrDraftKind    = errors.New("draft kind does not match section")
)

// DeletePrompt is shown before any delete.
const DeletePrompt = "Are you sure you want to delete this item?"

type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// Snapshotter exposes the cached content.
type Snapshotter interface {
	Snapshot() content.Snapshot
}

// Gateway performs the remote writes. Every method reloads the store on
// success; a LoadFailure means the write went through but the reload did not.
type Gateway interface {
	SaveHero(ctx context.Context, d draft.Draft) error
	CreateProject(ctx context.Context, d draft.Draft) error
	UpdateProject(ctx context.Context, id int64, d draft.Draft) error
	DeleteProject(ctx context.Context, id int64) error
	ToggleFeatured(ctx context.Context, id int64) error
	CreateExperience(ctx context.Context, d draft.Draft) error
	UpdateExperience(ctx context.Context, id int64, d draft.Draft) error
	DeleteExperience(ctx context.Context, id int64) error
	SaveSettings(ctx context.Context, d draft.Draft) error
	Reload(ctx context.Context) error
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Target identifies what an edit will write to. ID is captured when the
// edit starts so a reload in between cannot point the save elsewhere.
type Target struct {
	Section draft.Section
	Index   *int
	ID      int64
}

// IsNew reports whether saving creates an entry.
func (t Target) IsNew() bool {
	return t.Section.Listed() && t.Index == nil
}

type Session struct {
	store   Snapshotter
	gateway Gateway
	confirm Confirmer
	logger  *slog.Logger

	loading atomic.Bool

	mu     sync.Mutex
	state  State
	target Target
	draft  draft.Draft
	gen    uint64
	err    error
}

func New(store Snapshotter, gateway Gateway, confirm Confirmer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{store: store, gateway: gateway, confirm: confirm, logger: logger}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Target() (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.state == Editing
}

// Draft returns a copy of the live draft, or nil when idle.
func (s *Session) Draft() draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	return s.draft.Clone()
}

func (s *Session) Loading() bool {
	return s.loading.Load()
}

// Err is the current error banner.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) ClearErr() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// StartEdit stages a draft for the entry at index in section, or the section
// template when index is nil. Singletons ignore index. Starting while already
// editing replaces the previous draft.
func (s *Session) StartEdit(section draft.Section, index *int) error {
	if section.Kind() == "" {
		return fmt.Errorf("%w: %q", draft.ErrUnknownSection, section)
	}
	snap := s.store.Snapshot()

	target := Target{Section: section}
	var staged draft.Draft
	switch {
	case section == draft.SectionHero:
		staged = draft.StageHero(snap.Hero)
	case section == draft.SectionSettings:
		staged = draft.StageSettings(snap.Settings)
	case index == nil:
		staged, _ = draft.Template(section)
	default:
		id, d, err := stageEntry(snap, section, *index)
		if err != nil {
			return err
		}
		i := *index
		target.Index = &i
		target.ID = id
		staged = d
	}

	s.mu.Lock()
	s.state = Editing
	s.target = target
	s.draft = staged
	s.gen++
	s.mu.Unlock()
	return nil
}

func stageEntry(snap content.Snapshot, section draft.Section, index int) (int64, draft.Draft, error) {
	switch section {
	case draft.SectionFeatured, draft.SectionProjects:
		list := snap.Projects
		if section == draft.SectionFeatured {
			list = snap.Featured()
		}
		if index < 0 || index >= len(list) {
			return 0, nil, fmt.Errorf("%w: %s[%d]", ErrNoSuchEntry, section, index)
		}
		return list[index].ID, draft.StageProject(list[index]), nil
	case draft.SectionExperiences:
		if index < 0 || index >= len(snap.Experiences) {
			return 0, nil, fmt.Errorf("%w: %s[%d]", ErrNoSuchEntry, section, index)
		}
		return snap.Experiences[index].ID, draft.StageExperience(snap.Experiences[index]), nil
	}
	return 0, nil, fmt.Errorf("%w: %s", ErrNoSuchEntry, section)
}

// Set assigns one field of the live draft.
func (s *Session) Set(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return ErrNotEditing
	}
	return s.draft.Set(field, value)
}

// SetDraft replaces the live draft wholesale.
func (s *Session) SetDraft(d draft.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return ErrNotEditing
	}
	if d == nil || d.Kind() != s.target.Section.Kind() {
		return ErrDraftKind
	}
	s.draft = d.Clone()
	return nil
}

// Cancel drops the draft without any request.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
}

func (s *Session) reset() {
	s.state = Idle
	s.target = Target{}
	s.draft = nil
}

// Save writes the draft through the gateway. On success the session returns
// to Idle; on a failed write it stays in Editing with the draft intact.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Editing {
		s.mu.Unlock()
		return ErrNotEditing
	}
	target, staged, gen := s.target, s.draft.Clone(), s.gen
	s.mu.Unlock()

	if !s.loading.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.loading.Store(false)
	s.ClearErr()

	if project, ok := staged.(*draft.Project); ok && target.Section == draft.SectionFeatured {
		project.IsFeatured = true
	}

	err := s.dispatchSave(ctx, target, staged)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		if !content.IsFailure(err, content.LoadFailure) {
			return err
		}
	}
	// a newer StartEdit owns the session now
	if s.gen == gen {
		s.reset()
	}
	return err
}

func (s *Session) dispatchSave(ctx context.Context, target Target, d draft.Draft) error {
	switch target.Section {
	case draft.SectionHero:
		return s.gateway.SaveHero(ctx, d)
	case draft.SectionSettings:
		return s.gateway.SaveSettings(ctx, d)
	case draft.SectionFeatured, draft.SectionProjects:
		if target.IsNew() {
			return s.gateway.CreateProject(ctx, d)
		}
		return s.gateway.UpdateProject(ctx, target.ID, d)
	case draft.SectionExperiences:
		if target.IsNew() {
			return s.gateway.CreateExperience(ctx, d)
		}
		return s.gateway.UpdateExperience(ctx, target.ID, d)
	}
	return fmt.Errorf("%w: %q", draft.ErrUnknownSection, target.Section)
}

// Delete removes the entry at index after confirmation. A declined prompt
// returns ErrDeclined and issues no request.
func (s *Session) Delete(ctx context.Context, section draft.Section, index int) error {
	if !section.Listed() {
		return fmt.Errorf("%w: %s", ErrNotDeletable, section)
	}
	id, _, err := stageEntry(s.store.Snapshot(), section, index)
	if err != nil {
		return err
	}

	if s.confirm == nil {
		return ErrDeclined
	}
	ok, err := s.confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		s.logger.Info("editor: delete declined", "section", section, "id", id)
		return ErrDeclined
	}

	if !s.loading.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.loading.Store(false)

	if section == draft.SectionExperiences {
		err = s.gateway.DeleteExperience(ctx, id)
	} else {
		err = s.gateway.DeleteProject(ctx, id)
	}
	s.record(err)
	return err
}

// Refresh reloads every collection.
func (s *Session) Refresh(ctx context.Context) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.loading.Store(false)
	err := s.gateway.Reload(ctx)
	s.record(err)
	return err
}

func (s *Session) record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
