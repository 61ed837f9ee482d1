package store

import (
	"fmt"
	"strings"
)

// Patches carry only the fields present in a PUT body; nil leaves the column alone.

type ProjectPatch struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Image        *string   `json:"image"`
	GithubURL    *string   `json:"github_url"`
	LiveURL      *string   `json:"live_url"`
	Technologies *[]string `json:"technologies"`
	IsFeatured   *bool     `json:"is_featured"`
}

type ExperiencePatch struct {
	Title       *string   `json:"title"`
	Company     *string   `json:"company"`
	Duration    *string   `json:"duration"`
	Location    *string   `json:"location"`
	Description *string   `json:"description"`
	Skills      *[]string `json:"skills"`
}

type SettingsPatch struct {
	FontSize    *string `json:"font_size"`
	Theme       *string `json:"theme"`
	Email       *string `json:"email"`
	GithubURL   *string `json:"github_url"`
	LinkedinURL *string `json:"linkedin_url"`
	TwitterURL  *string `json:"twitter_url"`
}

// assignments accumulates "col=$n" pairs for a dynamic UPDATE.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(column string, value any) {
	a.args = append(a.args, value)
	a.cols = append(a.cols, fmt.Sprintf("%s=$%d", column, len(a.args)))
}

func (a *assignments) setString(column string, value *string) {
	if value != nil {
		a.set(column, *value)
	}
}

func (a *assignments) empty() bool {
	return len(a.cols) == 0
}

// update renders UPDATE table SET ... WHERE id=$n RETURNING returning.
func (a *assignments) update(table string, id int64, returning string) (string, []any) {
	cols := append(append([]string{}, a.cols...), "updated_at=NOW()")
	args := append(append([]any{}, a.args...), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id=$%d RETURNING %s",
		table, strings.Join(cols, ", "), len(args), returning)
	return query, args
}
