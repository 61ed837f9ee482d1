package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio/cms/internal/content"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const (
	heroColumns       = `id, name, title, description, profile_image`
	projectColumns    = `id, title, description, image, github_url, live_url, technologies, is_featured`
	experienceColumns = `id, title, company, duration, location, description, skills`
	settingsColumns   = `font_size, theme, email, github_url, linkedin_url, twitter_url`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHero(row rowScanner) (content.Hero, error) {
	var hero content.Hero
	var image sql.NullString
	if err := row.Scan(&hero.ID, &hero.Name, &hero.Title, &hero.Description, &image); err != nil {
		return content.Hero{}, err
	}
	if image.Valid {
		hero.ProfileImage = &image.String
	}
	return hero, nil
}

func scanProject(row rowScanner) (content.Project, error) {
	var project content.Project
	var technologies []byte
	if err := row.Scan(&project.ID, &project.Title, &project.Description, &project.Image,
		&project.GithubURL, &project.LiveURL, &technologies, &project.IsFeatured); err != nil {
		return content.Project{}, err
	}
	list, err := decodeList(technologies)
	if err != nil {
		return content.Project{}, fmt.Errorf("decode technologies: %w", err)
	}
	project.Technologies = list
	return project, nil
}

func scanExperience(row rowScanner) (content.Experience, error) {
	var experience content.Experience
	var skills []byte
	if err := row.Scan(&experience.ID, &experience.Title, &experience.Company, &experience.Duration,
		&experience.Location, &experience.Description, &skills); err != nil {
		return content.Experience{}, err
	}
	list, err := decodeList(skills)
	if err != nil {
		return content.Experience{}, fmt.Errorf("decode skills: %w", err)
	}
	experience.Skills = list
	return experience, nil
}

func scanSettings(row rowScanner) (content.Settings, error) {
	var settings content.Settings
	err := row.Scan(&settings.FontSize, &settings.Theme, &settings.Email,
		&settings.GithubURL, &settings.LinkedinURL, &settings.TwitterURL)
	return settings, err
}

func decodeList(raw []byte) ([]string, error) {
	list := []string{}
	if len(raw) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	raw, _ := json.Marshal(list)
	return string(raw)
}

// Hero returns the singleton hero, or nil when none has been saved.
func (s *PostgresStore) Hero(ctx context.Context) (*content.Hero, error) {
	hero, err := scanHero(s.db.QueryRowContext(ctx, `SELECT `+heroColumns+` FROM hero ORDER BY id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hero: %w", err)
	}
	return &hero, nil
}

// SaveHero overwrites every field of the existing hero or creates it.
func (s *PostgresStore) SaveHero(ctx context.Context, hero content.Hero) (content.Hero, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return content.Hero{}, fmt.Errorf("begin hero tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM hero ORDER BY id LIMIT 1 FOR UPDATE`).Scan(&id)
	var saved content.Hero
	switch {
	case errors.Is(err, sql.ErrNoRows):
		saved, err = scanHero(tx.QueryRowContext(ctx, `
			INSERT INTO hero (name, title, description, profile_image)
			VALUES ($1, $2, $3, $4)
			RETURNING `+heroColumns,
			hero.Name, hero.Title, hero.Description, hero.ProfileImage))
	case err != nil:
		return content.Hero{}, fmt.Errorf("lock hero: %w", err)
	default:
		saved, err = scanHero(tx.QueryRowContext(ctx, `
			UPDATE hero SET name=$1, title=$2, description=$3, profile_image=$4, updated_at=NOW()
			WHERE id=$5
			RETURNING `+heroColumns,
			hero.Name, hero.Title, hero.Description, hero.ProfileImage, id))
	}
	if err != nil {
		return content.Hero{}, fmt.Errorf("save hero: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return content.Hero{}, fmt.Errorf("commit hero: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, featuredOnly bool) ([]content.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if featuredOnly {
		query += ` WHERE is_featured`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []content.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *PostgresStore) GetProject(ctx context.Context, id int64) (content.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
}

func (s *PostgresStore) CreateProject(ctx context.Context, project content.Project) (content.Project, error) {
	created, err := scanProject(s.db.QueryRowContext(ctx, `
		INSERT INTO projects (title, description, image, github_url, live_url, technologies, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		RETURNING `+projectColumns,
		project.Title, project.Description, project.Image, project.GithubURL, project.LiveURL,
		encodeList(project.Technologies), project.IsFeatured))
	if err != nil {
		return content.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return created, nil
}

// UpdateProject applies patch; sql.ErrNoRows when id does not exist.
func (s *PostgresStore) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (content.Project, error) {
	var set assignments
	set.setString("title", patch.Title)
	set.setString("description", patch.Description)
	set.setString("image", patch.Image)
	set.setString("github_url", patch.GithubURL)
	set.setString("live_url", patch.LiveURL)
	if patch.Technologies != nil {
		set.set("technologies", encodeList(*patch.Technologies))
		set.cols[len(set.cols)-1] += "::jsonb"
	}
	if patch.IsFeatured != nil {
		set.set("is_featured", *patch.IsFeatured)
	}
	if set.empty() {
		return s.GetProject(ctx, id)
	}
	query, args := set.update("projects", id, projectColumns)
	return scanProject(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "projects", id)
}

// ToggleFeatured flips is_featured in one statement and returns the new value.
func (s *PostgresStore) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	var featured bool
	err := s.db.QueryRowContext(ctx, `
		UPDATE projects SET is_featured = NOT is_featured, updated_at=NOW()
		WHERE id=$1
		RETURNING is_featured
	`, id).Scan(&featured)
	return featured, err
}

func (s *PostgresStore) ListExperiences(ctx context.Context) ([]content.Experience, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+experienceColumns+` FROM experiences ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	experiences := []content.Experience{}
	for rows.Next() {
		experience, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		experiences = append(experiences, experience)
	}
	return experiences, rows.Err()
}

func (s *PostgresStore) GetExperience(ctx context.Context, id int64) (content.Experience, error) {
	return scanExperience(s.db.QueryRowContext(ctx, `SELECT `+experienceColumns+` FROM experiences WHERE id=$1`, id))
}

func (s *PostgresStore) CreateExperience(ctx context.Context, experience content.Experience) (content.Experience, error) {
	created, err := scanExperience(s.db.QueryRowContext(ctx, `
		INSERT INTO experiences (title, company, duration, location, description, skills)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING `+experienceColumns,
		experience.Title, experience.Company, experience.Duration, experience.Location,
		experience.Description, encodeList(experience.Skills)))
	if err != nil {
		return content.Experience{}, fmt.Errorf("insert experience: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateExperience(ctx context.Context, id int64, patch ExperiencePatch) (content.Experience, error) {
	var set assignments
	set.setString("title", patch.Title)
	set.setString("company", patch.Company)
	set.setString("duration", patch.Duration)
	set.setString("location", patch.Location)
	set.setString("description", patch.Description)
	if patch.Skills != nil {
		set.set("skills", encodeList(*patch.Skills))
		set.cols[len(set.cols)-1] += "::jsonb"
	}
	if set.empty() {
		return s.GetExperience(ctx, id)
	}
	query, args := set.update("experiences", id, experienceColumns)
	return scanExperience(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) DeleteExperience(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "experiences", id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Settings returns the singleton row, creating it with defaults on first read.
func (s *PostgresStore) Settings(ctx context.Context) (content.Settings, error) {
	defaults := content.DefaultSettings()
	settings, err := scanSettings(s.db.QueryRowContext(ctx, `
		WITH existing AS (
			SELECT `+settingsColumns+` FROM settings ORDER BY id LIMIT 1
		), inserted AS (
			INSERT INTO settings (font_size, theme)
			SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM existing)
			RETURNING `+settingsColumns+`
		)
		SELECT * FROM existing UNION ALL SELECT * FROM inserted
	`, defaults.FontSize, defaults.Theme))
	if err != nil {
		return content.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, patch SettingsPatch) (content.Settings, error) {
	if _, err := s.Settings(ctx); err != nil {
		return content.Settings{}, err
	}
	var set assignments
	set.setString("font_size", patch.FontSize)
	set.setString("theme", patch.Theme)
	set.setString("email", patch.Email)
	set.setString("github_url", patch.GithubURL)
	set.setString("linkedin_url", patch.LinkedinURL)
	set.setString("twitter_url", patch.TwitterURL)
	if set.empty() {
		return s.Settings(ctx)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM settings ORDER BY id LIMIT 1`).Scan(&id); err != nil {
		return content.Settings{}, fmt.Errorf("locate settings: %w", err)
	}
	query, args := set.update("settings", id, settingsColumns)
	settings, err := scanSettings(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return content.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return settings, nil
}

// Portfolio assembles the GET / payload.
func (s *PostgresStore) Portfolio(ctx context.Context) (content.Portfolio, error) {
	hero, err := s.Hero(ctx)
	if err != nil {
		return content.Portfolio{}, err
	}
	projects, err := s.ListProjects(ctx, false)
	if err != nil {
		return content.Portfolio{}, err
	}
	experiences, err := s.ListExperiences(ctx)
	if err != nil {
		return content.Portfolio{}, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return content.Portfolio{}, err
	}

	featured := []content.Project{}
	for _, project := range projects {
		if project.IsFeatured {
			featured = append(featured, project)
		}
	}
	return content.Portfolio{
		Hero:             hero,
		FeaturedProjects: featured,
		Projects:         projects,
		Experiences:      experiences,
		Settings:         &settings,
	}, nil
}

// IsEmpty reports whether no hero, project or experience exists yet.
func (s *PostgresStore) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM hero)
			OR EXISTS(SELECT 1 FROM projects)
			OR EXISTS(SELECT 1 FROM experiences)
	`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check content: %w", err)
	}
	return !exists, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, subject string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, subject, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET subject=EXCLUDED.subject, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, subject, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

// LookupRefreshSession returns the subject of a live session.
func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var subject string
	err := s.db.QueryRowContext(ctx, `
		SELECT subject FROM refresh_sessions
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&subject)
	return subject, err
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
