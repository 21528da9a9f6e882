package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PredictionStatus enumerates prediction lifecycle states.
type PredictionStatus string

const (
	StatusProcessing PredictionStatus = "processing"
	StatusSucceeded  PredictionStatus = "succeeded"
	StatusFailed     PredictionStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s PredictionStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// PredictionType enumerates supported generation categories.
type PredictionType string

const (
	TypeTextToImage PredictionType = "text-to-image"
	TypeInpainting  PredictionType = "inpainting"
)

// Prediction tracks one generation job from submission to its terminal
// state. Status starts at processing and moves at most once to succeeded
// or failed; Output and Error are mutually exclusive. After creation the
// record has a single writer, its own fulfillment goroutine.
type Prediction struct {
	ID          string           `json:"id"`
	Type        PredictionType   `json:"type,omitempty"`
	Status      PredictionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Input       json.RawMessage  `json:"input"`
	Output      json.RawMessage  `json:"output,omitempty"`
	Error       string           `json:"error,omitempty"`
	RemoteID    string           `json:"-"`
}

// NewPredictionID issues a locally unique prediction identifier. The
// time-based prefix keeps IDs sortable in logs; the random suffix makes
// collisions implausible. IDs are not secrets.
func NewPredictionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("pred_%d_%s", now.UnixMilli(), suffix)
}

// Clone returns a deep copy so store readers never alias a record that the
// fulfillment goroutine may still patch.
func (p *Prediction) Clone() *Prediction {
	if p == nil {
		return nil
	}
	out := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	out.Input = append(json.RawMessage(nil), p.Input...)
	if p.Output != nil {
		out.Output = append(json.RawMessage(nil), p.Output...)
	}
	return &out
}
