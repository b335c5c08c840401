// Package events announces chain repairs to other systems.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation names the write that triggered a repair.
type Operation string

const (
	OpUpsert  Operation = "upsert"
	OpDelete  Operation = "delete"
	OpRebuild Operation = "rebuild"
)

// ChainRepaired is published after a road list chain was rewritten.
type ChainRepaired struct {
	ID         string    `json:"id"`
	VehicleID  string    `json:"vehicle_id"`
	Operation  Operation `json:"operation"`
	DocumentID string    `json:"document_id,omitempty"`
	// Rewritten lists every document id that was persisted, in chain order.
	Rewritten []string  `json:"rewritten"`
	At        time.Time `json:"at"`
}

// NewChainRepaired stamps a new event with a fresh id and the current time.
func NewChainRepaired(vehicleID string, op Operation, documentID string, rewritten []string) ChainRepaired {
	if rewritten == nil {
		rewritten = []string{}
	}
	return ChainRepaired{
		ID:         uuid.NewString(),
		VehicleID:  vehicleID,
		Operation:  op,
		DocumentID: documentID,
		Rewritten:  rewritten,
		At:         time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev ChainRepaired) error
	Close()
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, ChainRepaired) error { return nil }
func (Noop) Close()                                       {}
