package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"

	"github.com/sysjosh/digestd/internal/util"
)

var httpClient = &http.Client{}

func fetch[T any](
	ctx context.Context, url *url.URL, allowedMediaTypes []string, parser func(body io.Reader) (T, error),
	opts ...Option,
) (_ T, retErr error) {
	var zero T
	defer func() {
		if retErr != nil {
			retErr = fmt.Errorf("failed to fetch %s: %w", url, retErr)
		}
	}()

	options := getOptions(opts)

	ctx, cancel := context.WithTimeout(ctx, options.timeout)
	defer cancel()

	logging.L(ctx).Debugf("Fetching %s...", url)

	startTime := time.Now()
	response, err := httpClientFetch(ctx, url, options)
	observeDuration(ctx, startTime)
	if err != nil {
		return zero, err
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.L(ctx).Errorf("Failed to close HTTP client body: %s.", err)
		}
	}()

	if statusCode := response.StatusCode; statusCode < 200 || statusCode >= 300 {
		return zero, &StatusError{StatusCode: statusCode, Status: response.Status}
	}

	if err := checkContentType(response.Header.Get("Content-Type"), allowedMediaTypes); err != nil {
		return zero, err
	}

	return parser(bodyReader{body: io.LimitReader(response.Body, maxBodySize)})
}

func httpClientFetch(ctx context.Context, url *url.URL, options options) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("User-Agent", options.userAgent)

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, util.MakeTemporaryError(err)
	}

	return response, nil
}

type bodyReader struct {
	body io.Reader
}

var _ io.Reader = bodyReader{}

func (r bodyReader) Read(buf []byte) (int, error) {
	n, err := r.body.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		err = util.MakeTemporaryError(err)
	}
	return n, err
}

// A missing Content-Type is tolerated: the parsers detect the format on their own. Nil allowedMediaTypes
// disables the check.
func checkContentType(contentType string, allowedMediaTypes []string) error {
	if contentType == "" || allowedMediaTypes == nil {
		return nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("got an invalid Content-Type: %w", err)
	}

	if !slices.Contains(allowedMediaTypes, mediaType) {
		return fmt.Errorf("got an invalid Content-Type (%s)", mediaType)
	}

	return nil
}
