package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"imagestudio/internal/domain"
)

func newTestPrediction(id string) *domain.Prediction {
	return &domain.Prediction{
		ID:        id,
		Type:      domain.TypeTextToImage,
		Status:    domain.StatusProcessing,
		CreatedAt: time.Now().UTC(),
		Input:     json.RawMessage(`{"prompt":"a red fox"}`),
	}
}

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, newTestPrediction("pred_1")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	got, err := m.Get(ctx, "pred_1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != domain.StatusProcessing {
		t.Fatalf("Status mismatch: got %q", got.Status)
	}

	if err := m.Put(ctx, newTestPrediction("pred_1")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := m.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Put(ctx, newTestPrediction("pred_1")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	first, _ := m.Get(ctx, "pred_1")
	first.Status = domain.StatusFailed
	first.Error = "mutated by caller"

	second, _ := m.Get(ctx, "pred_1")
	if second.Status != domain.StatusProcessing || second.Error != "" {
		t.Fatalf("stored record was mutated through a read copy: %+v", second)
	}
}

func TestMemoryPatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Put(ctx, newTestPrediction("pred_1")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	remoteID := "rpl_abc"
	if err := m.Patch(ctx, "pred_1", Patch{RemoteID: &remoteID}); err != nil {
		t.Fatalf("Patch returned error: %v", err)
	}

	status := domain.StatusSucceeded
	output := json.RawMessage(`["http://x/img.png"]`)
	now := time.Now().UTC()
	if err := m.Patch(ctx, "pred_1", Patch{Status: &status, Output: output, CompletedAt: &now}); err != nil {
		t.Fatalf("Patch returned error: %v", err)
	}

	got, err := m.Get(ctx, "pred_1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.RemoteID != remoteID {
		t.Fatalf("RemoteID mismatch: got %q", got.RemoteID)
	}
	if got.Status != domain.StatusSucceeded {
		t.Fatalf("Status mismatch: got %q", got.Status)
	}
	if string(got.Output) != `["http://x/img.png"]` {
		t.Fatalf("Output mismatch: got %s", got.Output)
	}
	if got.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}

	if err := m.Patch(ctx, "missing", Patch{Status: &status}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"pred_1", "pred_2", "pred_3"} {
		if err := m.Put(ctx, newTestPrediction(id)); err != nil {
			t.Fatalf("Put %s returned error: %v", id, err)
		}
	}
	ids, err := m.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs returned error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d: %v", len(ids), ids)
	}
}

func TestMemoryPrune(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	old := newTestPrediction("pred_old")
	old.Status = domain.StatusSucceeded
	done := time.Now().Add(-2 * time.Hour)
	old.CompletedAt = &done
	if err := m.Put(ctx, old); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	// Still processing, must survive any sweep.
	if err := m.Put(ctx, newTestPrediction("pred_live")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	recent := newTestPrediction("pred_recent")
	recent.Status = domain.StatusFailed
	justNow := time.Now()
	recent.CompletedAt = &justNow
	if err := m.Put(ctx, recent); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	removed, err := m.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed record, got %d", removed)
	}
	if _, err := m.Get(ctx, "pred_old"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected pred_old to be evicted, got %v", err)
	}
	if _, err := m.Get(ctx, "pred_live"); err != nil {
		t.Fatalf("pred_live should survive: %v", err)
	}
	if _, err := m.Get(ctx, "pred_recent"); err != nil {
		t.Fatalf("pred_recent should survive: %v", err)
	}
}
