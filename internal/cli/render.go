package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"portfolio/cms/internal/content"
	"portfolio/cms/internal/draft"
	"portfolio/cms/internal/fields"
)

func renderSection(w io.Writer, snap content.Snapshot, section draft.Section) {
	fmt.Fprintf(w, "== %s ==\n", strings.ToUpper(string(section)))
	switch section {
	case draft.SectionHero:
		renderFields(w, draft.StageHero(snap.Hero).Fields())
	case draft.SectionSettings:
		renderFields(w, draft.StageSettings(snap.Settings).Fields())
	case draft.SectionFeatured:
		renderProjects(w, snap.Featured())
	case draft.SectionProjects:
		renderProjects(w, snap.Projects)
	case draft.SectionExperiences:
		renderExperiences(w, snap.Experiences)
	}
}

func renderFields(w io.Writer, list []draft.Field) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range list {
		value := f.Value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", f.Name, value)
	}
	tw.Flush()
}

func renderProjects(w io.Writer, projects []content.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tFEATURED\tTECHNOLOGIES")
	for i, p := range projects {
		featured := ""
		if p.IsFeatured {
			featured = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", i, p.ID, p.Title, featured, fields.ToEditable(p.Technologies))
	}
	tw.Flush()
}

func renderExperiences(w io.Writer, experiences []content.Experience) {
	if len(experiences) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tCOMPANY\tDURATION")
	for i, e := range experiences {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", i, e.ID, e.Title, e.Company, e.Duration)
	}
	tw.Flush()
}
