// Package store persists prediction records behind a small interface so the
// service layer stays agnostic of the backing store. The memory backend
// serves development and tests; redis and postgres back production setups.
package store

import (
	"context"
	"encoding/json"
	"time"

	"imagestudio/internal/domain"
)

// Patch carries the fields the fulfillment loop may set after creation.
// Nil pointers leave the stored value untouched.
type Patch struct {
	Status      *domain.PredictionStatus
	RemoteID    *string
	Output      json.RawMessage
	Error       *string
	CompletedAt *time.Time
}

// PredictionStore is the contract every backend implements. Writes to
// disjoint IDs may run concurrently; a single record only ever has one
// writer after creation.
type PredictionStore interface {
	// Put inserts a new record. domain.ErrAlreadyExists when the ID is taken.
	Put(ctx context.Context, p *domain.Prediction) error
	// Get returns a copy of the record or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Prediction, error)
	// Patch applies a partial update. domain.ErrNotFound when absent.
	Patch(ctx context.Context, id string, patch Patch) error
	// IDs lists every known prediction ID.
	IDs(ctx context.Context) ([]string, error)
	// Prune drops terminal records completed before the cutoff and reports
	// how many were removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

func applyPatch(p *domain.Prediction, patch Patch) {
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.RemoteID != nil {
		p.RemoteID = *patch.RemoteID
	}
	if patch.Output != nil {
		p.Output = append(json.RawMessage(nil), patch.Output...)
	}
	if patch.Error != nil {
		p.Error = *patch.Error
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		p.CompletedAt = &t
	}
}
