// Package config loads the configuration from built-in defaults, an optional config file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/sysjosh/digestd/internal/model"
	urlutil "github.com/sysjosh/digestd/pkg/url"
)

type Backend string

const (
	BackendNotion   Backend = "notion"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

var ErrMissingSetting = errors.New("missing required configuration")

type Config struct {
	Store   StoreConfig        `koanf:"store"`
	SMTP    SMTPConfig         `koanf:"smtp"`
	Digest  DigestConfig       `koanf:"digest"`
	Ingest  IngestConfig       `koanf:"ingest"`
	Sources []model.FeedSource `koanf:"sources"`
	Server  ServerConfig       `koanf:"server"`
	Metrics MetricsConfig      `koanf:"metrics"`
	Log     LogConfig          `koanf:"log"`
}

type StoreConfig struct {
	Backend  Backend        `koanf:"backend"`
	Timeout  time.Duration  `koanf:"timeout"`
	Notion   NotionConfig   `koanf:"notion"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
}

type NotionConfig struct {
	APIURL                string `koanf:"api_url"`
	Token                 string `koanf:"token"`
	ArticlesDatabaseID    string `koanf:"articles_database_id"`
	SubscribersDatabaseID string `koanf:"subscribers_database_id"`
	// DatabaseID is a legacy name of ArticlesDatabaseID.
	DatabaseID string `koanf:"database_id"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

type SMTPConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	User     string        `koanf:"user"`
	Password string        `koanf:"password"`
	FromName string        `koanf:"from_name"`
	Timeout  time.Duration `koanf:"timeout"`
}

type DigestConfig struct {
	Title         string        `koanf:"title"`
	Subject       string        `koanf:"subject"`
	Intro         string        `koanf:"intro"`
	BaseURL       string        `koanf:"base_url"`
	PreviewImages bool          `koanf:"preview_images"`
	RequireImage  bool          `koanf:"require_image"`
	ImageTimeout  time.Duration `koanf:"image_timeout"`
	ImageCacheTTL time.Duration `koanf:"image_cache_ttl"`
}

type IngestConfig struct {
	ItemLimit   int           `koanf:"item_limit"`
	FeedTimeout time.Duration `koanf:"feed_timeout"`
	InsertDelay time.Duration `koanf:"insert_delay"`
	UserAgent   string        `koanf:"user_agent"`
	Interval    time.Duration `koanf:"interval"`
}

type ServerConfig struct {
	Listen string `koanf:"listen"`
}

type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

var defaultConfigFiles = []string{
	"digestd.yaml",
	"digestd.yml",
	"digestd.json",
	"digestd.toml",
}

// Load loads the configuration. If path is empty, the first existing default config file is used, if any.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path, _ = lo.Find(defaultConfigFiles, func(file string) bool {
			_, err := os.Stat(file)
			return err == nil
		})
	}

	if path != "" {
		parser, err := getParser(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, oops.With("config_file", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, oops.With("key", key).Wrap(err)
			}
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if config.Store.Notion.ArticlesDatabaseID == "" {
		config.Store.Notion.ArticlesDatabaseID = config.Store.Notion.DatabaseID
	}
	if len(config.Sources) == 0 {
		config.Sources = DefaultSources()
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getParser(path string) (koanf.Parser, error) {
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, oops.Errorf("unsupported config file extension: %s", ext)
	}
}

func (c *Config) validate() error {
	errBuilder := oops.In("config")

	if c.Ingest.ItemLimit <= 0 {
		return errBuilder.With("item_limit", c.Ingest.ItemLimit).Errorf("ingest.item_limit must be positive")
	}
	if c.Ingest.Interval <= 0 {
		return errBuilder.With("interval", c.Ingest.Interval).Errorf("ingest.interval must be positive")
	}
	if c.Digest.RequireImage && !c.Digest.PreviewImages {
		return errBuilder.Errorf("digest.require_image requires digest.preview_images")
	}

	names := make(map[string]struct{}, len(c.Sources))
	for index, source := range c.Sources {
		if source.Name == "" {
			return errBuilder.With("index", index).Errorf("feed source #%d has no name", index+1)
		}
		if _, ok := names[source.Name]; ok {
			return errBuilder.With("name", source.Name).Errorf("duplicate feed source name: %q", source.Name)
		}
		names[source.Name] = struct{}{}

		if _, err := urlutil.ParseHTTP(source.URL); err != nil {
			return errBuilder.With("name", source.Name).Wrapf(err, "invalid URL of %q feed source", source.Name)
		}
	}

	return nil
}

// ValidateStore checks that the settings of the configured store backend are set.
func (c *Config) ValidateStore() error {
	var missing []string

	switch c.Store.Backend {
	case BackendNotion:
		notion := c.Store.Notion
		missing = appendMissing(missing, notion.Token, "NOTION_TOKEN")
		missing = appendMissing(missing, notion.ArticlesDatabaseID, "ARTICLES_DATABASE_ID")
		missing = appendMissing(missing, notion.SubscribersDatabaseID, "SUBSCRIBERS_DATABASE_ID")
	case BackendSQLite:
		missing = appendMissing(missing, c.Store.SQLite.Path, "store.sqlite.path")
	case BackendPostgres:
		missing = appendMissing(missing, c.Store.Postgres.DSN, "store.postgres.dsn")
	default:
		return oops.In("config").With("backend", c.Store.Backend).Errorf("unsupported store backend: %q", c.Store.Backend)
	}

	return missingError(missing)
}

// ValidateMail checks the settings required to send the digest.
func (c *Config) ValidateMail() error {
	var missing []string
	missing = appendMissing(missing, c.SMTP.User, "GMAIL_USER")
	missing = appendMissing(missing, c.SMTP.Password, "GMAIL_APP_PASSWORD")
	missing = appendMissing(missing, c.Digest.BaseURL, "NEXT_PUBLIC_BASE_URL")
	if err := missingError(missing); err != nil {
		return err
	}
	return c.ValidateDigest()
}

// ValidateDigest checks the settings required to render the digest.
func (c *Config) ValidateDigest() error {
	if err := missingError(appendMissing(nil, c.Digest.BaseURL, "NEXT_PUBLIC_BASE_URL")); err != nil {
		return err
	}
	if _, err := urlutil.ParseHTTP(c.Digest.BaseURL); err != nil {
		return oops.In("config").Wrapf(err, "invalid digest.base_url")
	}
	return nil
}

func (c *Config) BaseURL() (*urlutil.URL, error) {
	return urlutil.ParseHTTP(c.Digest.BaseURL)
}

func appendMissing(missing []string, value string, name string) []string {
	if strings.TrimSpace(value) == "" {
		missing = append(missing, name)
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
}
