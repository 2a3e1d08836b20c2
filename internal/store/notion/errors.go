package notion

import (
	"errors"
	"net/http"

	"github.com/jomei/notionapi"

	"github.com/sysjosh/digestd/internal/util"
)

// classifyError marks rate limiting and server-side API errors as temporary.
func classifyError(err error) error {
	var rateLimitErr *notionapi.RateLimitedError
	if errors.As(err, &rateLimitErr) {
		return util.MakeTemporaryError(err)
	}

	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) &&
		(apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError) {
		return util.MakeTemporaryError(err)
	}

	return err
}
