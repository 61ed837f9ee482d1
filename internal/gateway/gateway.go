package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"portfolio/cms/internal/content"
	"portfolio/cms/internal/draft"
)

// ErrDraftMismatch is returned when a draft of the wrong kind reaches an
// operation. No request is issued.
var ErrDraftMismatch = errors.New("draft does not match operation")

// API is the subset of Client the Gateway drives.
type API interface {
	SaveHero(ctx context.Context, hero content.Hero) (content.Hero, error)
	CreateProject(ctx context.Context, project content.Project) (content.Project, error)
	UpdateProject(ctx context.Context, id int64, project content.Project) (content.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ToggleFeatured(ctx context.Context, id int64) (ToggleResult, error)
	CreateExperience(ctx context.Context, experience content.Experience) (content.Experience, error)
	UpdateExperience(ctx context.Context, id int64, experience content.Experience) (content.Experience, error)
	DeleteExperience(ctx context.Context, id int64) error
	UpdateSettings(ctx context.Context, settings content.Settings) (content.Settings, error)
}

// Reloader refreshes the local snapshot after a write.
type Reloader interface {
	Load(ctx context.Context) error
}

// Gateway issues exactly one request per operation. A failed request leaves
// the store untouched and is not retried; a successful one is followed by a
// full reload.
type Gateway struct {
	api      API
	reloader Reloader
	logger   *slog.Logger
}

func New(api API, reloader Reloader, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{api: api, reloader: reloader, logger: logger}
}

func (g *Gateway) SaveHero(ctx context.Context, d draft.Draft) error {
	hero, ok := d.(*draft.Hero)
	if !ok {
		return mismatch(content.SaveFailure, "save hero", d)
	}
	_, err := g.api.SaveHero(ctx, hero.Payload())
	return g.finish(ctx, "save hero", content.SaveFailure, err)
}

func (g *Gateway) CreateProject(ctx context.Context, d draft.Draft) error {
	project, ok := d.(*draft.Project)
	if !ok {
		return mismatch(content.SaveFailure, "create project", d)
	}
	_, err := g.api.CreateProject(ctx, project.Payload())
	return g.finish(ctx, "create project", content.SaveFailure, err)
}

func (g *Gateway) UpdateProject(ctx context.Context, id int64, d draft.Draft) error {
	project, ok := d.(*draft.Project)
	if !ok {
		return mismatch(content.SaveFailure, "update project", d)
	}
	_, err := g.api.UpdateProject(ctx, id, project.Payload())
	return g.finish(ctx, "update project", content.SaveFailure, err)
}

func (g *Gateway) DeleteProject(ctx context.Context, id int64) error {
	err := g.api.DeleteProject(ctx, id)
	return g.finish(ctx, "delete project", content.DeleteFailure, err)
}

func (g *Gateway) ToggleFeatured(ctx context.Context, id int64) error {
	_, err := g.api.ToggleFeatured(ctx, id)
	return g.finish(ctx, "toggle featured", content.ToggleFailure, err)
}

func (g *Gateway) CreateExperience(ctx context.Context, d draft.Draft) error {
	experience, ok := d.(*draft.Experience)
	if !ok {
		return mismatch(content.SaveFailure, "create experience", d)
	}
	_, err := g.api.CreateExperience(ctx, experience.Payload())
	return g.finish(ctx, "create experience", content.SaveFailure, err)
}

func (g *Gateway) UpdateExperience(ctx context.Context, id int64, d draft.Draft) error {
	experience, ok := d.(*draft.Experience)
	if !ok {
		return mismatch(content.SaveFailure, "update experience", d)
	}
	_, err := g.api.UpdateExperience(ctx, id, experience.Payload())
	return g.finish(ctx, "update experience", content.SaveFailure, err)
}

func (g *Gateway) DeleteExperience(ctx context.Context, id int64) error {
	err := g.api.DeleteExperience(ctx, id)
	return g.finish(ctx, "delete experience", content.DeleteFailure, err)
}

func (g *Gateway) SaveSettings(ctx context.Context, d draft.Draft) error {
	settings, ok := d.(*draft.Settings)
	if !ok {
		return mismatch(content.SaveFailure, "save settings", d)
	}
	_, err := g.api.UpdateSettings(ctx, settings.Payload())
	return g.finish(ctx, "save settings", content.SaveFailure, err)
}

// Reload re-fetches the snapshot without writing anything.
func (g *Gateway) Reload(ctx context.Context) error {
	return g.reloader.Load(ctx)
}

func (g *Gateway) finish(ctx context.Context, op string, kind content.FailureKind, err error) error {
	if errors.Is(err, ErrResponseBody) {
		g.logger.Warn("gateway: "+op+" accepted with unreadable body", "error", err)
		err = nil
	}
	if err != nil {
		g.logger.Error("gateway: "+op+" failed", "error", err)
		return content.NewFailure(kind, err)
	}
	if err := g.reloader.Load(ctx); err != nil {
		g.logger.Warn("gateway: reload after "+op+" failed", "error", err)
		return err
	}
	return nil
}

func mismatch(kind content.FailureKind, op string, d draft.Draft) error {
	got := "nil"
	if d != nil {
		got = string(d.Kind())
	}
	return content.NewFailure(kind, fmt.Errorf("%s: %w (got %s)", op, ErrDraftMismatch, got))
}
