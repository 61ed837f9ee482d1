package content

// Portfolio is the payload of GET /. FeaturedProjects is kept for wire
// compatibility; readers derive the featured view from Projects instead.
type Portfolio struct {
	Hero             *Hero        `json:"hero"`
	FeaturedProjects []Project    `json:"featured_projects"`
	Projects         []Project    `json:"projects"`
	Experiences      []Experience `json:"experiences"`
	Settings         *Settings    `json:"settings"`
}

// Snapshot is the last-loaded state of the four collections.
type Snapshot struct {
	Hero        Hero
	Projects    []Project
	Experiences []Experience
	Settings    Settings
}

// DefaultSnapshot is the state before anything has been loaded.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Projects:    []Project{},
		Experiences: []Experience{},
		Settings:    DefaultSettings(),
	}
}

// Snapshot converts the wire payload, filling every absent field with its default.
func (p Portfolio) Snapshot() Snapshot {
	snap := DefaultSnapshot()
	if p.Hero != nil {
		snap.Hero = p.Hero.Clone()
	}
	for _, project := range p.Projects {
		project = project.Clone()
		if project.Technologies == nil {
			project.Technologies = []string{}
		}
		snap.Projects = append(snap.Projects, project)
	}
	for _, experience := range p.Experiences {
		experience = experience.Clone()
		if experience.Skills == nil {
			experience.Skills = []string{}
		}
		snap.Experiences = append(snap.Experiences, experience)
	}
	if p.Settings != nil {
		snap.Settings = p.Settings.WithDefaults()
	}
	return snap
}

// Portfolio renders the snapshot in wire form with the featured list derived.
func (s Snapshot) Portfolio() Portfolio {
	hero := s.Hero.Clone()
	settings := s.Settings
	clone := s.Clone()
	return Portfolio{
		Hero:             &hero,
		FeaturedProjects: clone.Featured(),
		Projects:         clone.Projects,
		Experiences:      clone.Experiences,
		Settings:         &settings,
	}
}

// Featured returns the projects flagged as featured, in project order.
func (s Snapshot) Featured() []Project {
	featured := make([]Project, 0)
	for _, project := range s.Projects {
		if project.IsFeatured {
			featured = append(featured, project.Clone())
		}
	}
	return featured
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Hero:        s.Hero.Clone(),
		Projects:    make([]Project, 0, len(s.Projects)),
		Experiences: make([]Experience, 0, len(s.Experiences)),
		Settings:    s.Settings,
	}
	for _, project := range s.Projects {
		out.Projects = append(out.Projects, project.Clone())
	}
	for _, experience := range s.Experiences {
		out.Experiences = append(out.Experiences, experience.Clone())
	}
	return out
}
