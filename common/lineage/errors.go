package lineage

import (
	"errors"
	"fmt"

	"github.com/lyzr/lineage/common/fetch"
)

// ErrNotFound is re-exported so callers need not import the fetch layer
var ErrNotFound = fetch.ErrNotFound

// ErrRecursionLimitExceeded means the season-link walk hit the depth cap,
// which only happens with a cyclic or absurdly long predecessor chain.
var ErrRecursionLimitExceeded = errors.New("season link recursion limit exceeded")

// ErrInvalidAsset is returned for asset ids that are neither a player id nor a pick id
var ErrInvalidAsset = errors.New("invalid asset id")

// ErrInvalidRoster is returned for roster ids outside the league
var ErrInvalidRoster = errors.New("invalid roster id")

// InconsistentDataError reports upstream history that contradicts itself,
// e.g. a trade adding a player that no roster gave up.
type InconsistentDataError struct {
	TransactionID string
	AssetID       string
	Reason        string
}

func (e *InconsistentDataError) Error() string {
	return fmt.Sprintf("inconsistent data in transaction %s for asset %s: %s", e.TransactionID, e.AssetID, e.Reason)
}

// IsInconsistentData reports whether err wraps an *InconsistentDataError
func IsInconsistentData(err error) bool {
	var target *InconsistentDataError
	return errors.As(err, &target)
}
