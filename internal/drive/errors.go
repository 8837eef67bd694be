package drive

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned for HTTP 401. The cached token has
	// already been cleared when a caller sees it.
	ErrUnauthorized = errors.New("unauthorized: drive token rejected, run `shelfkeep auth login`")
	// ErrNoToken is returned when no unexpired token is available.
	ErrNoToken = errors.New("no drive token: run `shelfkeep auth login` or `shelfkeep auth token`")
)

// APIError is any other non-2xx response from the Drive API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("drive API error %d", e.Status)
	}
	return fmt.Sprintf("drive API error %d: %s", e.Status, e.Body)
}
