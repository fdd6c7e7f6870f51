package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPortal/internal/scoring"
)

func TestDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Chdir(t.TempDir())

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ArticlesFile, cfg.Storage.Articles)
	assert.Equal(t, "data/view_events.json", cfg.Storage.EventsPath)
	assert.Equal(t, scoring.DefaultPolicy(), cfg.Trending.Policy())
	assert.Equal(t, 24*time.Hour, cfg.Trending.DedupWindow())
	assert.Equal(t, 24*time.Hour, cfg.Trending.TrendingWindow())
	assert.Equal(t, 7*24*time.Hour, cfg.Trending.Retention())
	assert.Equal(t, 20, cfg.Trending.ViewCountDelaySeconds)
	assert.Equal(t, "@every 15m", cfg.Scheduler.TrendingSpec)
	assert.Equal(t, "@every 6h", cfg.Scheduler.PopularSpec)
	assert.Equal(t, "@daily", cfg.Scheduler.CleanupSpec)
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
	assert.False(t, cfg.Notifications.Telegram.Enabled())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  shutdownTimeout: 30s
trending:
  minRecentViews: 80
  scoreThreshold: 750
  timeWindowHours: 12
scheduler:
  trendingSpec: "*/10 * * * *"
  timezone: Asia/Kathmandu
redis:
  addr: "localhost:6379"
`), 0o644))

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://news:news@db:5432/news")
	t.Setenv(telegramTokenEnv, "token")
	t.Setenv(telegramChatIDEnv, "-100")
	t.Setenv(logLevelEnv, "debug")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.EqualValues(t, 80, cfg.Trending.MinRecentViews)
	assert.EqualValues(t, 200, cfg.Trending.MinTotalViews)
	assert.Equal(t, 750.0, cfg.Trending.ScoreThreshold)
	assert.Equal(t, 12*time.Hour, cfg.Trending.TrendingWindow())
	assert.Equal(t, 24*time.Hour, cfg.Trending.DedupWindow(), "dedup has its own knob")
	assert.Equal(t, "*/10 * * * *", cfg.Scheduler.TrendingSpec)
	assert.Equal(t, "@every 6h", cfg.Scheduler.PopularSpec)
	assert.Equal(t, "Asia/Kathmandu", cfg.Scheduler.Location().String())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ArticlesPostgres, cfg.Storage.Articles)
	assert.Equal(t, "postgres://news:news@db:5432/news", cfg.Database.DSN)
	assert.True(t, cfg.Notifications.Telegram.Enabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFallsBackOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))
	t.Setenv(configPathEnv, path)

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestUnknownTimezoneRevertsToUTC(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.bindTimezone()

	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(configPathEnv, "")
	t.Setenv(redisAddrEnv, "")
	require.NoError(t, os.Unsetenv(redisAddrEnv))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_ADDR=cache:6379\n"), 0o644))

	cfg := Load()
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}
