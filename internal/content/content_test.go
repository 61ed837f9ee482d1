package content

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeroAcceptsLegacyProfileImage(t *testing.T) {
	var hero Hero
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Ada","profileImage":"/uploads/a.png"}`), &hero))
	require.NotNil(t, hero.ProfileImage)
	assert.Equal(t, "/uploads/a.png", *hero.ProfileImage)

	var both Hero
	require.NoError(t, json.Unmarshal([]byte(`{"profile_image":"/new.png","profileImage":"/old.png"}`), &both))
	assert.Equal(t, "/new.png", *both.ProfileImage)
}

func TestHeroWritesCanonicalKeys(t *testing.T) {
	image := "/uploads/a.png"
	raw, err := json.Marshal(Hero{Name: "Ada", ProfileImage: &image})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"profile_image":"/uploads/a.png"`)
	assert.NotContains(t, string(raw), "profileImage")
}

func TestProjectAcceptsLegacyKeysAndIntegerFlag(t *testing.T) {
	var project Project
	raw := `{"id":7,"title":"Demo","githubUrl":"https://github.com/x","liveUrl":"https://x.dev","is_featured":1}`
	require.NoError(t, json.Unmarshal([]byte(raw), &project))
	assert.Equal(t, int64(7), project.ID)
	assert.Equal(t, "https://github.com/x", project.GithubURL)
	assert.Equal(t, "https://x.dev", project.LiveURL)
	assert.True(t, project.IsFeatured)

	var canonical Project
	require.NoError(t, json.Unmarshal([]byte(`{"github_url":"a","githubUrl":"b","is_featured":false}`), &canonical))
	assert.Equal(t, "a", canonical.GithubURL)
	assert.False(t, canonical.IsFeatured)
}

func TestProjectAcceptsQuotedFlag(t *testing.T) {
	cases := map[string]bool{
		`"true"`:  true,
		`"1"`:     true,
		`" 0 "`:   false,
		`"false"`: false,
		`""`:      false,
		`null`:    false,
	}
	for raw, want := range cases {
		var project Project
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"is_featured":`+raw+`}`), &project), raw)
		assert.Equal(t, want, project.IsFeatured, raw)
	}
}

func TestProjectRejectsUnknownFlag(t *testing.T) {
	var project Project
	err := json.Unmarshal([]byte(`{"is_featured":"yes"}`), &project)
	assert.Error(t, err)
}

func TestPortfolioSnapshotFillsDefaults(t *testing.T) {
	snap := Portfolio{}.Snapshot()
	assert.Equal(t, Hero{}, snap.Hero)
	assert.NotNil(t, snap.Projects)
	assert.Empty(t, snap.Projects)
	assert.NotNil(t, snap.Experiences)
	assert.Equal(t, FontMedium, snap.Settings.FontSize)
	assert.Equal(t, ThemeLight, snap.Settings.Theme)

	partial := Portfolio{
		Settings: &Settings{Theme: ThemeDark, Email: "me@example.com"},
		Projects: []Project{{ID: 1, Title: "No techs"}},
	}.Snapshot()
	assert.Equal(t, FontMedium, partial.Settings.FontSize)
	assert.Equal(t, ThemeDark, partial.Settings.Theme)
	assert.Equal(t, "me@example.com", partial.Settings.Email)
	assert.Equal(t, []string{}, partial.Projects[0].Technologies)
}

func TestSnapshotFeaturedIsDerivedFromProjects(t *testing.T) {
	snap := Portfolio{
		Projects: []Project{
			{ID: 1, Title: "A", IsFeatured: true},
			{ID: 2, Title: "B"},
			{ID: 3, Title: "C", IsFeatured: true},
		},
		// a stale featured list from the wire must not leak into the view
		FeaturedProjects: []Project{{ID: 2, Title: "B", IsFeatured: true}},
	}.Snapshot()

	featured := snap.Featured()
	require.Len(t, featured, 2)
	assert.Equal(t, int64(1), featured[0].ID)
	assert.Equal(t, int64(3), featured[1].ID)
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	image := "/a.png"
	snap := Snapshot{
		Hero:        Hero{ProfileImage: &image},
		Projects:    []Project{{ID: 1, Technologies: []string{"Go"}}},
		Experiences: []Experience{{ID: 1, Skills: []string{"SQL"}}},
	}
	clone := snap.Clone()
	clone.Projects[0].Technologies[0] = "Rust"
	clone.Experiences[0].Skills[0] = "NoSQL"
	*clone.Hero.ProfileImage = "/b.png"

	assert.Equal(t, "Go", snap.Projects[0].Technologies[0])
	assert.Equal(t, "SQL", snap.Experiences[0].Skills[0])
	assert.Equal(t, "/a.png", *snap.Hero.ProfileImage)
}

func TestFailureMessages(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFailure(SaveFailure, cause)

	assert.Equal(t, "Failed to save data", Message(err))
	assert.True(t, IsFailure(err, SaveFailure))
	assert.False(t, IsFailure(err, LoadFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to delete item", Message(NewFailure(DeleteFailure, nil)))
	assert.Equal(t, "", Message(nil))
}
