// Package digest groups the selected articles by category and renders them into an HTML e-mail.
package digest

import (
	"time"

	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/model"
)

const DefaultCategory = "General"

type Entry struct {
	Title string
	URL   string
	Image mo.Option[string]
}

type Section struct {
	Category string
	Entries  []Entry
}

// Digest is the subscriber-independent part of the e-mail.
type Digest struct {
	Date     time.Time
	Sections []Section
}

func (d *Digest) Size() int {
	size := 0
	for _, section := range d.Sections {
		size += len(section.Entries)
	}
	return size
}

func (d *Digest) Empty() bool {
	return d.Size() == 0
}

// Group groups the articles by category. Categories are ordered by their first occurrence, articles keep
// their relative order within a category.
func Group(articles []model.Article) []Section {
	var sections []Section
	indexes := make(map[string]int)

	for _, article := range articles {
		category := article.Category.OrElse(DefaultCategory)
		if category == "" {
			category = DefaultCategory
		}

		index, ok := indexes[category]
		if !ok {
			index = len(sections)
			indexes[category] = index
			sections = append(sections, Section{Category: category})
		}

		sections[index].Entries = append(sections[index].Entries, newEntry(article))
	}

	return sections
}

func newEntry(article model.Article) Entry {
	entry := Entry{
		Title: article.Title,
		URL:   article.URL,
	}
	if entry.Title == "" {
		entry.Title = model.UntitledTitle
	}
	if entry.URL == "" {
		entry.URL = "#"
	}
	return entry
}
