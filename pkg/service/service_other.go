//go:build !windows

package service

import (
	"context"
	"fmt"
)

// NewQuerier returns a querier that always fails with ErrUnsupported.
func NewQuerier() Querier {
	return QuerierFunc(func(_ context.Context, name string) (Info, error) {
		return Info{}, fmt.Errorf("querying service %q: %w", name, ErrUnsupported)
	})
}
