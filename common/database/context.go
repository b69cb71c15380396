// Package database holds per-operation deadlines for SQL calls.
package database

import (
	"context"
	"time"
)

const (
	DefaultQueryTimeout = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	// DefaultTxTimeout covers multi-statement transactions such as
	// enrollment and transfer, which hold row locks.
	DefaultTxTimeout = 15 * time.Second
)

// QueryContext bounds a single read.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext bounds a single INSERT, UPDATE or DELETE.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

func TxContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTxTimeout)
}
