package config

import (
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NewsPortal/internal/scoring"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWS_PORTAL_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	mongoURIEnv       = "MONGODB_URI"
	mongoDatabaseEnv  = "MONGODB_DATABASE"
	redisAddrEnv      = "REDIS_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
)

// Article store drivers.
const (
	ArticlesFile     = "file"
	ArticlesPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Database      DatabaseConfig     `yaml:"database"`
	Mongo         MongoConfig        `yaml:"mongo"`
	Redis         RedisConfig        `yaml:"redis"`
	Trending      TrendingConfig     `yaml:"trending"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	ViewRatePerSecond float64       `yaml:"viewRatePerSecond"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig selects the article store. EventsPath holds view events when
// Mongo is not configured.
type StorageConfig struct {
	Articles     string `yaml:"articles"`
	SnapshotPath string `yaml:"snapshotPath"`
	EventsPath   string `yaml:"eventsPath"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MongoConfig locates the view event collection. An empty URI keeps events in memory.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// RedisConfig enables the ranking cache when Addr is set.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// TrendingConfig carries the classification thresholds and view tracking knobs.
type TrendingConfig struct {
	MinRecentViews        int64   `yaml:"minRecentViews"`
	TimeWindowHours       int     `yaml:"timeWindowHours"`
	DedupWindowHours      int     `yaml:"dedupWindowHours"`
	MinTotalViews         int64   `yaml:"minTotalViews"`
	ScoreThreshold        float64 `yaml:"scoreThreshold"`
	CheckIntervalMinutes  int     `yaml:"checkIntervalMinutes"`
	ViewCountDelaySeconds int     `yaml:"viewCountDelaySeconds"`
	RetentionDays         int     `yaml:"retentionDays"`
}

// Policy converts the thresholds into a scoring policy snapshot.
func (t TrendingConfig) Policy() scoring.Policy {
	return scoring.Policy{
		MinRecentViews: t.MinRecentViews,
		MinTotalViews:  t.MinTotalViews,
		ScoreThreshold: t.ScoreThreshold,
	}
}

// TrendingWindow is the span counted by the 24h scoring pass.
func (t TrendingConfig) TrendingWindow() time.Duration {
	return time.Duration(t.TimeWindowHours) * time.Hour
}

// DedupWindow is how long one identifier counts once per article.
func (t TrendingConfig) DedupWindow() time.Duration {
	return time.Duration(t.DedupWindowHours) * time.Hour
}

// Retention is how long view events are kept.
func (t TrendingConfig) Retention() time.Duration {
	return time.Duration(t.RetentionDays) * 24 * time.Hour
}

// SchedulerConfig defines when recurring tasks run.
type SchedulerConfig struct {
	TrendingSpec string         `yaml:"trendingSpec"`
	PopularSpec  string         `yaml:"popularSpec"`
	CleanupSpec  string         `yaml:"cleanupSpec"`
	SnapshotSpec string         `yaml:"snapshotSpec"`
	TaskTimeout  time.Duration  `yaml:"taskTimeout"`
	Timezone     string         `yaml:"timezone"`
	location     *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	SiteURL  string         `yaml:"siteUrl"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if fileCfg, err := readFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func readFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, err
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, err
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
		c.Storage.Articles = ArticlesPostgres
	}

	if v := os.Getenv(mongoURIEnv); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv(mongoDatabaseEnv); v != "" {
		c.Mongo.Database = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeout > 0 {
		base.Server.ReadTimeout = override.Server.ReadTimeout
	}
	if override.Server.WriteTimeout > 0 {
		base.Server.WriteTimeout = override.Server.WriteTimeout
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}
	if override.Server.ViewRatePerSecond > 0 {
		base.Server.ViewRatePerSecond = override.Server.ViewRatePerSecond
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Storage.Articles != "" {
		base.Storage.Articles = override.Storage.Articles
	}
	if override.Storage.SnapshotPath != "" {
		base.Storage.SnapshotPath = override.Storage.SnapshotPath
	}
	if override.Storage.EventsPath != "" {
		base.Storage.EventsPath = override.Storage.EventsPath
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Mongo.URI != "" {
		base.Mongo.URI = override.Mongo.URI
	}
	if override.Mongo.Database != "" {
		base.Mongo.Database = override.Mongo.Database
	}
	if override.Mongo.Collection != "" {
		base.Mongo.Collection = override.Mongo.Collection
	}

	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Prefix != "" {
		base.Redis.Prefix = override.Redis.Prefix
	}
	if override.Redis.TTL > 0 {
		base.Redis.TTL = override.Redis.TTL
	}

	base.Trending = mergeTrending(base.Trending, override.Trending)

	if override.Scheduler.TrendingSpec != "" {
		base.Scheduler.TrendingSpec = override.Scheduler.TrendingSpec
	}
	if override.Scheduler.PopularSpec != "" {
		base.Scheduler.PopularSpec = override.Scheduler.PopularSpec
	}
	if override.Scheduler.CleanupSpec != "" {
		base.Scheduler.CleanupSpec = override.Scheduler.CleanupSpec
	}
	if override.Scheduler.SnapshotSpec != "" {
		base.Scheduler.SnapshotSpec = override.Scheduler.SnapshotSpec
	}
	if override.Scheduler.TaskTimeout > 0 {
		base.Scheduler.TaskTimeout = override.Scheduler.TaskTimeout
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.SiteURL != "" {
		base.Notifications.SiteURL = override.Notifications.SiteURL
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func mergeTrending(base, override TrendingConfig) TrendingConfig {
	if override.MinRecentViews > 0 {
		base.MinRecentViews = override.MinRecentViews
	}
	if override.TimeWindowHours > 0 {
		base.TimeWindowHours = override.TimeWindowHours
	}
	if override.DedupWindowHours > 0 {
		base.DedupWindowHours = override.DedupWindowHours
	}
	if override.MinTotalViews > 0 {
		base.MinTotalViews = override.MinTotalViews
	}
	if override.ScoreThreshold > 0 {
		base.ScoreThreshold = override.ScoreThreshold
	}
	if override.CheckIntervalMinutes > 0 {
		base.CheckIntervalMinutes = override.CheckIntervalMinutes
	}
	if override.ViewCountDelaySeconds > 0 {
		base.ViewCountDelaySeconds = override.ViewCountDelaySeconds
	}
	if override.RetentionDays > 0 {
		base.RetentionDays = override.RetentionDays
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	policy := scoring.DefaultPolicy()
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			ViewRatePerSecond: 20,
		},
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{Articles: ArticlesFile, SnapshotPath: "data/articles.json", EventsPath: "data/view_events.json"},
		Mongo:   MongoConfig{Database: "newsportal", Collection: "view_events"},
		Redis:   RedisConfig{Prefix: "news:ranking:", TTL: 7 * time.Hour},
		Trending: TrendingConfig{
			MinRecentViews:        policy.MinRecentViews,
			TimeWindowHours:       24,
			DedupWindowHours:      24,
			MinTotalViews:         policy.MinTotalViews,
			ScoreThreshold:        policy.ScoreThreshold,
			CheckIntervalMinutes:  60,
			ViewCountDelaySeconds: 20,
			RetentionDays:         7,
		},
		Scheduler: SchedulerConfig{
			TrendingSpec: "@every 15m",
			PopularSpec:  "@every 6h",
			CleanupSpec:  "@daily",
			SnapshotSpec: "@every 1m",
			TaskTimeout:  5 * time.Minute,
			Timezone:     defaultTimezone,
			location:     tz,
		},
		Notifications: NotificationConfig{SiteURL: "http://localhost:8080"},
	}
}
