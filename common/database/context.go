// Package database holds the per-operation deadlines shared by the
// PostgreSQL and Redis backed stores.
package database

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds reads and pings.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds inserts and updates.
	DefaultWriteTimeout = 10 * time.Second
)

// QueryContext derives a context for a read. An earlier parent deadline wins.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext derives a context for a write.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}
