package query

import (
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestMeta(t *testing.T) {
	t.Parallel()

	doc := parse(t, heredoc.Doc(`
		<html><head>
			<meta name="description" content="Some description">
			<meta property="og:image" content="  ">
			<meta property="OG:IMAGE" content="/images/cover.png">
			<meta name="og:image" content="/images/second.png">
		</head><body></body></html>
	`))

	image, ok := Meta(doc.Selection, "og:image")
	require.True(t, ok)
	require.Equal(t, "/images/cover.png", image)

	_, ok = Meta(doc.Selection, "twitter:image")
	require.False(t, ok)
}
