package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS searches with Postgres full-text search. The vectors are computed per
// query; the tables are small enough that no stored tsvector column is kept.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy is always true: without Postgres there is no API at all.
func (p *PgFTS) Healthy() bool {
	return true
}

const (
	projectVector    = "to_tsvector('english', p.title || ' ' || p.description || ' ' || p.technologies::text)"
	experienceVector = "to_tsvector('english', e.title || ' ' || e.company || ' ' || e.location || ' ' || e.description || ' ' || e.skills::text)"
)

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultProject {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'project'::text AS type, p.id, p.title,
				ts_headline('english', p.description, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(%s, %s) AS rank
			FROM projects p
			WHERE %s @@ %s`, tsQuery, projectVector, tsQuery, projectVector, tsQuery))
	}
	if q.FilterType == "" || q.FilterType == ResultExperience {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'experience'::text AS type, e.id,
				CASE WHEN e.company = '' THEN e.title ELSE e.title || ' @ ' || e.company END AS title,
				ts_headline('english', e.description, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(%s, %s) AS rank
			FROM experiences e
			WHERE %s @@ %s`, tsQuery, experienceVector, tsQuery, experienceVector, tsQuery))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet
		FROM (%s) sub
		ORDER BY rank DESC, id ASC
		LIMIT %d OFFSET %d`, union, limit, offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every searchable row for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ProjectRecord, []ExperienceRecord, error) {
	projectRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, title, description, technologies, is_featured
		FROM projects
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load projects: %w", err)
	}
	defer projectRows.Close()

	projects := make([]ProjectRecord, 0)
	for projectRows.Next() {
		var r ProjectRecord
		var technologies []byte
		if err := projectRows.Scan(&r.ID, &r.Title, &r.Description, &technologies, &r.IsFeatured); err != nil {
			return nil, nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal(technologies, &r.Technologies); err != nil {
			return nil, nil, fmt.Errorf("decode technologies for project %s: %w", r.ID, err)
		}
		projects = append(projects, r)
	}
	if err := projectRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate projects: %w", err)
	}

	experienceRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, title, company, location, description, skills
		FROM experiences
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load experiences: %w", err)
	}
	defer experienceRows.Close()

	experiences := make([]ExperienceRecord, 0)
	for experienceRows.Next() {
		var r ExperienceRecord
		var skills []byte
		if err := experienceRows.Scan(&r.ID, &r.Title, &r.Company, &r.Location, &r.Description, &skills); err != nil {
			return nil, nil, fmt.Errorf("scan experience: %w", err)
		}
		if err := json.Unmarshal(skills, &r.Skills); err != nil {
			return nil, nil, fmt.Errorf("decode skills for experience %s: %w", r.ID, err)
		}
		experiences = append(experiences, r)
	}
	if err := experienceRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate experiences: %w", err)
	}

	return projects, experiences, nil
}
