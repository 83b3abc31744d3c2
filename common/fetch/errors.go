package fetch

import (
	"errors"
	"fmt"
)

// ErrNotFound means the upstream has no such resource. It is an expected
// answer (a league without a predecessor, a week without transactions), not a failure.
var ErrNotFound = errors.New("resource not found upstream")

// UpstreamError is any non-success answer other than not-found, or a transport error
type UpstreamError struct {
	Path       string
	StatusCode int // 0 for transport errors
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s returned %d: %s", e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream %s: %v", e.Path, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
