package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

// HierarchyCycleError reports a parent chain that revisits an asset.
// Cycle lists the asset ids along the loop, first id repeated at the end.
type HierarchyCycleError struct {
	Cycle []string
}

// Error implements the error interface.
func (e *HierarchyCycleError) Error() string {
	return fmt.Sprintf("hierarchy cycle: %s", strings.Join(e.Cycle, " -> "))
}

// IsHierarchyCycle returns true if err is (or wraps) a HierarchyCycleError.
func IsHierarchyCycle(err error) bool {
	var cycleErr *HierarchyCycleError
	return errors.As(err, &cycleErr)
}

// InvalidAssetError reports an asset that cannot be indexed.
type InvalidAssetError struct {
	Index  int
	ID     string
	Reason string
}

// Error implements the error interface.
func (e *InvalidAssetError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("asset[%d]: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("asset[%d] %q: %s", e.Index, e.ID, e.Reason)
}
