package web

import (
	"io/fs"
	"testing"
	"time"

	"github.com/flexbase/flexbase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"feed.html", "explore.html", "post.html", "profile.html", "collection.html", "create.html", "login.html", "signup.html", "error.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestStatic(t *testing.T) {
	_, err := fs.Stat(Static(), "flexbase.css")
	assert.NoError(t, err)
}

func TestFuncs(t *testing.T) {
	f := Funcs()

	tagLabel := f["tagLabel"].(func(models.Tag) string)
	assert.Equal(t, "#grail", tagLabel(models.Tag{Name: "grail"}))
	assert.Equal(t, "brand:nike", tagLabel(models.Tag{Name: "nike", Category: "brand"}))

	initial := f["initial"].(func(string) string)
	assert.Equal(t, "?", initial(""))
	assert.Equal(t, "É", initial("éva"))

	isVideo := f["isVideo"].(func(models.Media) bool)
	assert.True(t, isVideo(models.Media{Kind: models.MediaVideo}))
	assert.False(t, isVideo(models.Media{Kind: models.MediaImage}))
}

func TestAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", Ago(now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", Ago(now.Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "3h ago", Ago(now.Add(-3*time.Hour-time.Second)))
	assert.Equal(t, "2d ago", Ago(now.Add(-49*time.Hour)))

	old := time.Date(2020, time.March, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mar 4, 2020", Ago(old))
}
