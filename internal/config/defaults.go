package config

import (
	"strings"

	"github.com/sysjosh/digestd/internal/digest"
	"github.com/sysjosh/digestd/internal/dispatch"
	"github.com/sysjosh/digestd/internal/ingest"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store/notion"
	"github.com/sysjosh/digestd/pkg/fetch"
)

var defaults = map[string]any{
	"store.backend":     string(BackendNotion),
	"store.timeout":     notion.DefaultTimeout,
	"store.sqlite.path": "digestd.db",

	"smtp.host":      dispatch.DefaultSMTPHost,
	"smtp.port":      dispatch.DefaultSMTPPort,
	"smtp.from_name": dispatch.DefaultFromName,
	"smtp.timeout":   dispatch.DefaultSMTPTimeout,

	"digest.title":           digest.DefaultTitle,
	"digest.subject":         digest.DefaultSubject,
	"digest.intro":           digest.DefaultIntro,
	"digest.preview_images":  true,
	"digest.require_image":   false,
	"digest.image_timeout":   digest.DefaultImageTimeout,
	"digest.image_cache_ttl": digest.DefaultImageCacheTTL,

	"ingest.item_limit":   10,
	"ingest.feed_timeout": "10s",
	"ingest.insert_delay": ingest.DefaultInsertDelay,
	"ingest.user_agent":   fetch.DefaultUserAgent,
	"ingest.interval":     "1h",

	"server.listen": ":8080",

	"log.level": "info",
}

// Environment variables which keep their historical names. Any other key can be set as
// DIGESTD_<SECTION>__<KEY>, for example DIGESTD_STORE__BACKEND=sqlite.
var envAliases = map[string]string{
	"NOTION_TOKEN":            "store.notion.token",
	"NOTION_DATABASE_ID":      "store.notion.database_id",
	"ARTICLES_DATABASE_ID":    "store.notion.articles_database_id",
	"SUBSCRIBERS_DATABASE_ID": "store.notion.subscribers_database_id",
	"GMAIL_USER":              "smtp.user",
	"GMAIL_APP_PASSWORD":      "smtp.password",
	"NEXT_PUBLIC_BASE_URL":    "digest.base_url",
}

const envPrefix = "DIGESTD_"

func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}

	key, ok := strings.CutPrefix(name, envPrefix)
	if !ok || key == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func DefaultSources() []model.FeedSource {
	return []model.FeedSource{
		{Name: "Hacker News", URL: "https://hnrss.org/frontpage", Category: "Tech"},
		{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "Tech"},
		{Name: "The Go Blog", URL: "https://go.dev/blog/feed.atom", Category: "Programming"},
		{Name: "Julia Evans", URL: "https://jvns.ca/atom.xml", Category: "Programming"},
		{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/", Category: "Security"},
		{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/", Category: "AI"},
	}
}
