// Package store persists anchored Merkle roots keyed by incident id.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("anchor store closed")

// Record is one anchored root.
type Record struct {
	MerkleRoot string `json:"merkle_root"`
	Timestamp  string `json:"timestamp"`
	TxID       string `json:"tx_id"`
}

// Store keeps the latest anchor per incident. Put replaces an earlier record.
type Store interface {
	Put(ctx context.Context, incidentID string, rec Record) error
	Get(ctx context.Context, incidentID string) (Record, bool, error)
	Ping(ctx context.Context) error
	Close() error
}
