// Package database holds shared deadlines for session backend calls.
package database

import (
	"context"
	"time"
)

// Timeouts applied to backend operations. A session read or write sits on
// the request path, so they are short.
const (
	DefaultQueryTimeout   = 5 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// QueryContext creates a context with DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext creates a context with DefaultWriteTimeout.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

// ConnectContext creates a context with DefaultConnectTimeout, for dialing
// and pinging a backend.
func ConnectContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultConnectTimeout)
}
