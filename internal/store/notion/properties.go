package notion

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"
)

const maxTextLength = 2000

func titleProperty(text string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: truncate(text, maxTextLength)}}},
	}
}

func dateProperty(date time.Time) *notionapi.DateProperty {
	start := notionapi.Date(date.UTC())
	return &notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}
}

func plainText(property notionapi.Property) string {
	var texts []notionapi.RichText
	switch property := property.(type) {
	case *notionapi.TitleProperty:
		texts = property.Title
	case *notionapi.RichTextProperty:
		texts = property.RichText
	}

	var builder strings.Builder
	for _, text := range texts {
		switch {
		case text.PlainText != "":
			builder.WriteString(text.PlainText)
		case text.Text != nil:
			builder.WriteString(text.Text.Content)
		}
	}
	return builder.String()
}

func urlValue(property notionapi.Property) string {
	if property, ok := property.(*notionapi.URLProperty); ok {
		return property.URL
	}
	return ""
}

func emailValue(property notionapi.Property) string {
	if property, ok := property.(*notionapi.EmailProperty); ok {
		return property.Email
	}
	return ""
}

func selectName(property notionapi.Property) string {
	if property, ok := property.(*notionapi.SelectProperty); ok {
		return property.Select.Name
	}
	return ""
}

func checked(property notionapi.Property) bool {
	checkbox, ok := property.(*notionapi.CheckboxProperty)
	return ok && checkbox.Checkbox
}

func dateValue(property notionapi.Property) (time.Time, bool) {
	date, ok := property.(*notionapi.DateProperty)
	if !ok || date.Date == nil || date.Date.Start == nil {
		return time.Time{}, false
	}
	return time.Time(*date.Date.Start), true
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
