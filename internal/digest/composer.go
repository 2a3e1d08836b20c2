package digest

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/model"
)

const (
	DefaultTitle   = "SysJosh Weekly"
	DefaultSubject = "SysJosh Weekly — Your Sunday Tech Briefing"
	DefaultIntro   = "Happy Sunday! Here's this week's picks. ☕"

	dateLayout = "January 02, 2006"
)

//go:embed templates/*.html
var templates embed.FS

// ImageSource looks up a preview image of an article page.
type ImageSource interface {
	Image(ctx context.Context, url string) mo.Option[string]
}

type Options struct {
	Title   string
	Intro   string
	BaseURL *url.URL
	// Images is optional: without it the digest has no preview images.
	Images       ImageSource
	RequireImage bool
}

type Composer struct {
	options  Options
	template *template.Template
	now      func() time.Time
}

func NewComposer(options Options) (*Composer, error) {
	if options.BaseURL == nil {
		return nil, fmt.Errorf("base URL is not set")
	}
	if options.RequireImage && options.Images == nil {
		return nil, fmt.Errorf("preview images are required, but image lookup is disabled")
	}
	if options.Title == "" {
		options.Title = DefaultTitle
	}
	if options.Intro == "" {
		options.Intro = DefaultIntro
	}

	tmpl, err := template.ParseFS(templates, "templates/digest.html")
	if err != nil {
		return nil, err
	}

	return &Composer{
		options:  options,
		template: tmpl,
		now:      time.Now,
	}, nil
}

// Build groups the articles and looks up their preview images. Articles without an image are dropped if
// images are required.
func (c *Composer) Build(ctx context.Context, articles []model.Article) *Digest {
	sections := Group(articles)

	if images := c.options.Images; images != nil {
		filtered := sections[:0]

		for _, section := range sections {
			entries := section.Entries[:0]

			for _, entry := range section.Entries {
				entry.Image = images.Image(ctx, entry.URL)
				if c.options.RequireImage && !entry.Image.IsPresent() {
					logging.L(ctx).Infof("Skipping %s: it has no preview image.", entry.URL)
					continue
				}
				entries = append(entries, entry)
			}

			if len(entries) != 0 {
				section.Entries = entries
				filtered = append(filtered, section)
			}
		}

		sections = filtered
	}

	return &Digest{
		Date:     c.now(),
		Sections: sections,
	}
}

type templateEntry struct {
	Title string
	URL   string
	Image string
}

type templateSection struct {
	Category string
	Entries  []templateEntry
}

type templateData struct {
	Title          string
	Date           string
	Intro          string
	Sections       []templateSection
	UnsubscribeURL string
}

// Render renders the digest for the subscriber with the specified unsubscribe token.
func (c *Composer) Render(digest *Digest, token string) (string, error) {
	data := templateData{
		Title:          c.options.Title,
		Date:           digest.Date.Format(dateLayout),
		Intro:          c.options.Intro,
		UnsubscribeURL: c.UnsubscribeURL(token),
	}

	for _, section := range digest.Sections {
		templateSection := templateSection{Category: section.Category}
		for _, entry := range section.Entries {
			templateSection.Entries = append(templateSection.Entries, templateEntry{
				Title: entry.Title,
				URL:   entry.URL,
				Image: entry.Image.OrEmpty(),
			})
		}
		data.Sections = append(data.Sections, templateSection)
	}

	var buf bytes.Buffer
	if err := c.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render the digest: %w", err)
	}
	return buf.String(), nil
}

func (c *Composer) Compose(ctx context.Context, articles []model.Article, token string) (string, error) {
	return c.Render(c.Build(ctx, articles), token)
}

func (c *Composer) UnsubscribeURL(token string) string {
	unsubscribeURL := c.options.BaseURL.JoinPath("unsubscribe")
	unsubscribeURL.RawQuery = url.Values{"token": {token}}.Encode()
	return unsubscribeURL.String()
}
