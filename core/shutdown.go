package core

import (
	"context"
)

// ShutdownFunc releases one resource. It is used both for process shutdown and
// for the per-request cleanup scope of an extraction.
//
// Implementations should respect ctx's deadline and be safe to call twice.
type ShutdownFunc func(ctx context.Context) error
