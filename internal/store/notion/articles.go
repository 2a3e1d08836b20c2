package notion

import (
	"context"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/jomei/notionapi"
	"github.com/samber/mo"
	"github.com/samber/oops"

	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
)

const (
	propertyTitle    = "Title"
	propertyURL      = "URL"
	propertyTopic    = "Topic"
	propertyAdded    = "Added"
	propertySelected = "Selected"
)

func (c *Client) ListArticles(
	ctx context.Context, articleFilter store.ArticleFilter, cursor string, pageSize int,
) (store.Page[model.Article], error) {
	var filter notionapi.Filter
	if selected, ok := articleFilter.Selected.Get(); ok {
		// A false equals is dropped from the request as an empty value.
		condition := &notionapi.CheckboxFilterCondition{Equals: true}
		if !selected {
			condition = &notionapi.CheckboxFilterCondition{DoesNotEqual: true}
		}
		filter = &notionapi.PropertyFilter{Property: propertySelected, Checkbox: condition}
	}

	response, err := c.queryDatabase(ctx, c.articlesDB, filter, cursor, pageSize)
	if err != nil {
		return store.Page[model.Article]{}, err
	}

	articles := make([]model.Article, 0, len(response.Results))
	for _, page := range response.Results {
		articles = append(articles, parseArticle(page))
	}

	return makePage(articles, response), nil
}

func (c *Client) CreateArticle(ctx context.Context, article model.Article) (string, error) {
	properties := notionapi.Properties{
		propertyTitle:    titleProperty(article.Title),
		propertyURL:      &notionapi.URLProperty{URL: article.URL},
		propertyAdded:    dateProperty(article.AddedAt),
		propertySelected: &notionapi.CheckboxProperty{Checkbox: article.Selected},
	}
	if category, ok := article.Category.Get(); ok {
		properties[propertyTopic] = &notionapi.SelectProperty{Select: notionapi.Option{Name: category}}
	}

	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.articlesDB,
		},
		Properties: properties,
	})
	if err != nil {
		return "", oops.In("notion").With("url", article.URL).Wrapf(classifyError(err), "failed to create Notion page")
	}

	logging.L(ctx).Debugf("Created Notion page %s for %s.", page.ID, article.URL)
	return string(page.ID), nil
}

func (c *Client) SetSelected(ctx context.Context, id string, selected bool) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propertySelected: &notionapi.CheckboxProperty{Checkbox: selected},
		},
	})
	if err != nil {
		return oops.In("notion").With("page", id).Wrapf(classifyError(err), "failed to update Notion page")
	}
	return nil
}

func parseArticle(page notionapi.Page) model.Article {
	properties := page.Properties

	article := model.Article{
		ID:       string(page.ID),
		Title:    plainText(properties[propertyTitle]),
		URL:      urlValue(properties[propertyURL]),
		Category: mo.EmptyableToOption(selectName(properties[propertyTopic])),
		Selected: checked(properties[propertySelected]),
	}
	if addedAt, ok := dateValue(properties[propertyAdded]); ok {
		article.AddedAt = addedAt
	}

	return article
}

func makePage[T any](items []T, response *notionapi.DatabaseQueryResponse) store.Page[T] {
	return store.Page[T]{
		Items:      items,
		HasMore:    response.HasMore,
		NextCursor: string(response.NextCursor),
	}
}
