package query

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func ForEach(selection *goquery.Selection, process func(selection *goquery.Selection) error) error {
	var err error
	selection.EachWithBreak(func(i int, selection *goquery.Selection) bool {
		err = process(selection)
		return err == nil
	})
	return err
}

// Meta returns the content of the first non-empty <meta> tag whose property or name attribute equals key.
func Meta(selection *goquery.Selection, key string) (string, bool) {
	var content string

	_ = ForEach(selection.Find("meta"), func(meta *goquery.Selection) error {
		if !strings.EqualFold(meta.AttrOr("property", ""), key) && !strings.EqualFold(meta.AttrOr("name", ""), key) {
			return nil
		}
		if value := strings.TrimSpace(meta.AttrOr("content", "")); value != "" {
			content = value
			return errFound
		}
		return nil
	})

	return content, content != ""
}

var errFound = errors.New("found")
