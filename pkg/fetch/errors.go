package fetch

import (
	"fmt"
	"net/http"

	"github.com/sysjosh/digestd/internal/util"
)

// StatusError is returned when the server responds with a non-2xx status code.
type StatusError struct {
	StatusCode int
	Status     string
}

var _ util.Temporary = &StatusError{}

func (e *StatusError) Error() string {
	return fmt.Sprintf("the server returned an error: %s", e.Status)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
