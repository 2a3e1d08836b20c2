package model

import (
	"strings"

	"github.com/sysjosh/digestd/pkg/parse"
)

const UntitledTitle = "Untitled"

// FeedSource is a named RSS/Atom feed the ingestion pipeline pulls from. Articles ingested from it are
// tagged with Category unless it's empty.
type FeedSource struct {
	Name     string `koanf:"name"`
	URL      string `koanf:"url"`
	Category string `koanf:"category"`
}

// FeedItem is one entry fetched from a feed. Only entries with a link become items.
type FeedItem struct {
	Title  string
	Link   string
	Source string
}

func NewFeedItem(title string, link string, source string) (FeedItem, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return FeedItem{}, false
	}

	title = parse.TrimTitle(title)
	if title == "" {
		title = UntitledTitle
	}

	return FeedItem{
		Title:  title,
		Link:   link,
		Source: source,
	}, true
}
