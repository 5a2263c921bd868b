package repository_test

import (
	"context"
	"edu_progress_backend/internal/config"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/util"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLocalCatalogSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"id":"course-b","slug":"b","chapters":[{"id":"c1","lessons":[{"id":"l1","slug":"b-l1"}]}]}`)
	writeFile(t, dir, "a.json", `{"id":"course-a","slug":"a","chapters":[]}`)
	writeFile(t, dir, "notes.txt", "ignored")

	src := &repository.LocalCatalogSource{Dir: dir}
	assert.Equal(t, util.CatalogLocal, src.Name())

	courses, err := src.LoadCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "course-a", courses[0].ID)
	assert.Equal(t, "b-l1", courses[1].Chapters[0].Lessons[0].Slug)
}

func TestLocalCatalogSourceRejectsBadDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"id":`)
	_, err := (&repository.LocalCatalogSource{Dir: dir}).LoadCourses(context.Background())
	assert.ErrorContains(t, err, "broken.json")

	dir = t.TempDir()
	writeFile(t, dir, "noid.json", `{"slug":"x"}`)
	_, err = (&repository.LocalCatalogSource{Dir: dir}).LoadCourses(context.Background())
	assert.ErrorContains(t, err, "course id is empty")
}

func TestNewCatalogSource(t *testing.T) {
	src, err := repository.NewCatalogSource(&config.CatalogConfig{LocalPath: "catalog"})
	require.NoError(t, err)
	assert.Equal(t, util.CatalogLocal, src.Name())

	src, err = repository.NewCatalogSource(&config.CatalogConfig{
		Source: util.CatalogMinio, MinioEndpoint: "localhost:9000", MinioBucket: "courses",
	})
	require.NoError(t, err)
	assert.Equal(t, util.CatalogMinio, src.Name())

	_, err = repository.NewCatalogSource(&config.CatalogConfig{Source: "ftp"})
	assert.Error(t, err)
}
