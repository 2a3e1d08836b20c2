package notion

import (
	"context"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/jomei/notionapi"

	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
)

const (
	propertyEmail  = "Email"
	propertyStatus = "Status"
	propertyToken  = "Token"
)

// ListSubscribers returns subscribers with the specified status. Status names are matched case-insensitively;
// subscribers with an unknown status are skipped.
func (c *Client) ListSubscribers(
	ctx context.Context, status model.SubscriberStatus, cursor string, pageSize int,
) (store.Page[model.Subscriber], error) {
	filter := &notionapi.PropertyFilter{
		Property: propertyStatus,
		Select:   &notionapi.SelectFilterCondition{Equals: status.String()},
	}

	response, err := c.queryDatabase(ctx, c.subscribersDB, filter, cursor, pageSize)
	if err != nil {
		return store.Page[model.Subscriber]{}, err
	}

	subscribers := make([]model.Subscriber, 0, len(response.Results))
	for _, page := range response.Results {
		subscriberStatus, err := model.ParseSubscriberStatus(selectName(page.Properties[propertyStatus]))
		if err != nil {
			logging.L(ctx).Warnf("Skipping %s subscriber: %s.", page.ID, err)
			continue
		} else if subscriberStatus != status {
			continue
		}

		subscribers = append(subscribers, model.Subscriber{
			ID:               string(page.ID),
			Email:            emailValue(page.Properties[propertyEmail]),
			Status:           subscriberStatus,
			UnsubscribeToken: plainText(page.Properties[propertyToken]),
		})
	}

	return makePage(subscribers, response), nil
}
