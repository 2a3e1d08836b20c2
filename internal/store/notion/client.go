// Package notion implements the store on top of two Notion databases: articles and subscribers.
package notion

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/jomei/notionapi"
	"github.com/samber/oops"

	"github.com/sysjosh/digestd/internal/store"
	"github.com/sysjosh/digestd/internal/util"
)

const (
	DefaultAPIURL  = "https://api.notion.com"
	DefaultTimeout = 30 * time.Second
	apiVersion     = "2022-06-28"
	maxPageSize    = 100
)

type Config struct {
	// APIURL is the API endpoint without the version part of the path.
	APIURL                string
	Token                 string
	ArticlesDatabaseID    string
	SubscribersDatabaseID string
	Timeout               time.Duration
}

type Client struct {
	api           *notionapi.Client
	httpClient    *http.Client
	articlesDB    notionapi.DatabaseID
	subscribersDB notionapi.DatabaseID
}

var _ store.Backend = &Client{}

func New(config Config) (*Client, error) {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	endpoint, err := url.Parse(apiURL)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, oops.In("notion").With("api_url", apiURL).Errorf("invalid Notion API URL")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &endpointTransport{
			endpoint: endpoint,
			next:     http.DefaultTransport,
		},
	}

	return &Client{
		api: notionapi.NewClient(
			notionapi.Token(config.Token),
			notionapi.WithHTTPClient(httpClient),
			notionapi.WithVersion(apiVersion),
		),
		httpClient:    httpClient,
		articlesDB:    notionapi.DatabaseID(config.ArticlesDatabaseID),
		subscribersDB: notionapi.DatabaseID(config.SubscribersDatabaseID),
	}, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) queryDatabase(
	ctx context.Context, databaseID notionapi.DatabaseID, filter notionapi.Filter, cursor string, pageSize int,
) (*notionapi.DatabaseQueryResponse, error) {
	response, err := c.api.Database.Query(ctx, databaseID, &notionapi.DatabaseQueryRequest{
		Filter:      filter,
		StartCursor: notionapi.Cursor(cursor),
		PageSize:    min(pageSize, maxPageSize),
	})
	if err != nil {
		return nil, oops.In("notion").With("database", databaseID, "cursor", cursor).Wrapf(
			classifyError(err), "failed to query Notion database")
	}
	return response, nil
}

// endpointTransport sends the API requests to the configured endpoint and marks transport errors as
// temporary.
type endpointTransport struct {
	endpoint *url.URL
	next     http.RoundTripper
}

func (t *endpointTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.URL.Scheme = t.endpoint.Scheme
	request.URL.Host = t.endpoint.Host
	request.URL.Path = strings.TrimSuffix(t.endpoint.Path, "/") + request.URL.Path
	request.URL.RawPath = ""
	request.Host = t.endpoint.Host

	logging.L(request.Context()).Debugf("Calling Notion API: %s %s...", request.Method, request.URL.Path)

	response, err := t.next.RoundTrip(request)
	if err != nil {
		return nil, util.MakeTemporaryError(err)
	}
	return response, nil
}
