package testutil

import (
	"context"
	"testing"
	"time"
)

const contextTimeout = 30 * time.Second

// NewTestContext creates a context that is cancelled when the test ends.
func NewTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), contextTimeout)
	t.Cleanup(cancel)
	return ctx
}
