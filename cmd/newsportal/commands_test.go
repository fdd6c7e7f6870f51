package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPortal/internal/app"
	"NewsPortal/internal/domain"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "recompute", "cleanup"}, names)
}

func TestRecomputeRejectsUnknownWindow(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"recompute", "--window", "30d"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func fileStoreEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("NEWS_PORTAL_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func readArticles(t *testing.T, path string) []map[string]any {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var articles []map[string]any
	require.NoError(t, json.Unmarshal(raw, &articles))
	return articles
}

var trendingArticle = map[string]any{
	"id":            "a1",
	"title":         "भूकम्प",
	"categories":    []string{"national"},
	"views":         61,
	"viewsLast24h":  61,
	"trendingScore": 614.1,
	"isTrending":    true,
}

func TestRecomputeKeepsCountersWithoutEventHistory(t *testing.T) {
	dir := fileStoreEnv(t)
	articlesPath := filepath.Join(dir, "data", "articles.json")
	writeJSON(t, articlesPath, []map[string]any{trendingArticle})

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"recompute", "--window", "24h"})

	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, app.ErrEventHistoryMissing)

	articles := readArticles(t, articlesPath)
	require.Len(t, articles, 1)
	assert.EqualValues(t, 61, articles[0]["viewsLast24h"])
	assert.Equal(t, true, articles[0]["isTrending"])
}

func TestRecomputeReadsPersistedEvents(t *testing.T) {
	dir := fileStoreEnv(t)
	articlesPath := filepath.Join(dir, "data", "articles.json")
	writeJSON(t, articlesPath, []map[string]any{trendingArticle})

	now := time.Now().UTC()
	events := make([]map[string]any, 0, 61)
	for i := 0; i < 61; i++ {
		viewed := now.Add(-time.Duration(i) * time.Minute)
		events = append(events, map[string]any{
			"id":         fmt.Sprintf("e%d", i),
			"articleId":  "a1",
			"identifier": fmt.Sprintf("viewer-%d", i),
			"viewedAt":   viewed,
			"expiresAt":  viewed.Add(7 * 24 * time.Hour),
		})
	}
	writeJSON(t, filepath.Join(dir, "data", "view_events.json"), events)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"recompute", "--window", "24h"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "updated=1")

	articles := readArticles(t, articlesPath)
	require.Len(t, articles, 1)
	assert.EqualValues(t, 61, articles[0]["viewsLast24h"])
	assert.Equal(t, true, articles[0]["isTrending"])
}

func TestRecomputeAndCleanupOnFileStore(t *testing.T) {
	dir := fileStoreEnv(t)

	for _, args := range [][]string{
		{"recompute", "--window", "7d"},
		{"cleanup"},
	} {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs(args)

		require.NoError(t, root.ExecuteContext(context.Background()), args)
		assert.NotEmpty(t, out.String())
	}

	assert.NoFileExists(t, filepath.Join(dir, "data", "articles.json"), "empty store is never snapshotted")
}
