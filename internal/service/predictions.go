// Package service owns the prediction lifecycle: validate a submission,
// write the initial record, hand the response back, and drive the remote
// job to a terminal state from a background goroutine.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
	"imagestudio/internal/mask"
	"imagestudio/internal/replicate"
	"imagestudio/internal/store"
)

// Generation parameter defaults applied when the caller omits them.
const (
	DefaultInferenceSteps = 25
	DefaultGuidanceScale  = 7.5
	DefaultScheduler      = "DPMSolverMultistep"
	DefaultDimension      = 512
	maxRandomSeed         = 1000000
)

// RemoteClient is the slice of the replicate client the service consumes;
// tests substitute a fake.
type RemoteClient interface {
	CreatePrediction(ctx context.Context, version string, input map[string]any) (*replicate.Prediction, error)
	CreateModelPrediction(ctx context.Context, model string, input map[string]any) (*replicate.Prediction, error)
	GetPrediction(ctx context.Context, remoteID string) (*replicate.Prediction, error)
}

// ValidationError reports which required submission fields were missing
// and which fields the caller actually sent.
type ValidationError struct {
	Required []string
	Missing  []string
	Received []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Options tunes the polling loop. Zero values fall back to the reference
// behavior of one poll per second, sixty polls.
type Options struct {
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Predictions implements submission, fulfillment and status lookup over an
// injected store and remote client.
type Predictions struct {
	store    store.PredictionStore
	remote   RemoteClient
	logger   zerolog.Logger
	interval time.Duration
	maxPolls int
}

func NewPredictions(st store.PredictionStore, remote RemoteClient, logger zerolog.Logger, opts Options) *Predictions {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	maxPolls := opts.PollMaxAttempts
	if maxPolls <= 0 {
		maxPolls = 60
	}
	return &Predictions{
		store:    st,
		remote:   remote,
		logger:   logger,
		interval: interval,
		maxPolls: maxPolls,
	}
}

// SubmitTextToImage validates a text-to-image submission, records it as
// processing and returns the record without waiting for fulfillment.
func (s *Predictions) SubmitTextToImage(ctx context.Context, input map[string]any) (*domain.Prediction, error) {
	if err := validate(input, []string{"prompt"}); err != nil {
		return nil, err
	}
	modelInput := map[string]any{
		"prompt":              input["prompt"],
		"negative_prompt":     stringOr(input, "negative_prompt", ""),
		"width":               intOr(input, "width", DefaultDimension),
		"height":              intOr(input, "height", DefaultDimension),
		"num_inference_steps": intOr(input, "num_inference_steps", DefaultInferenceSteps),
		"guidance_scale":      floatOr(input, "guidance_scale", DefaultGuidanceScale),
		"seed":                intOr(input, "seed", rand.Intn(maxRandomSeed)),
	}
	return s.submit(ctx, domain.TypeTextToImage, input, func(ctx context.Context) (*replicate.Prediction, error) {
		return s.remote.CreateModelPrediction(ctx, replicate.TextToImageModel, modelInput)
	})
}

// SubmitInpainting validates an inpainting submission (prompt plus source
// image and mask), records it and returns immediately.
func (s *Predictions) SubmitInpainting(ctx context.Context, input map[string]any) (*domain.Prediction, error) {
	if err := validate(input, []string{"image", "mask", "prompt"}); err != nil {
		return nil, err
	}
	modelInput := map[string]any{
		"prompt":              input["prompt"],
		"image":               mask.NormalizeDataURI(stringOr(input, "image", "")),
		"mask":                mask.NormalizeDataURI(stringOr(input, "mask", "")),
		"negative_prompt":     stringOr(input, "negative_prompt", ""),
		"num_inference_steps": intOr(input, "num_inference_steps", DefaultInferenceSteps),
		"guidance_scale":      floatOr(input, "guidance_scale", DefaultGuidanceScale),
		"scheduler":           stringOr(input, "scheduler", DefaultScheduler),
		"seed":                intOr(input, "seed", rand.Intn(maxRandomSeed)),
	}
	return s.submit(ctx, domain.TypeInpainting, input, func(ctx context.Context) (*replicate.Prediction, error) {
		return s.remote.CreatePrediction(ctx, replicate.InpaintingVersion, modelInput)
	})
}

// Get returns the current record for an ID. It reads the local store only;
// the remote service is never consulted here.
func (s *Predictions) Get(ctx context.Context, id string) (*domain.Prediction, error) {
	return s.store.Get(ctx, id)
}

// KnownIDs lists every prediction ID the store currently holds.
func (s *Predictions) KnownIDs(ctx context.Context) ([]string, error) {
	return s.store.IDs(ctx)
}

// Prune evicts terminal records completed before the cutoff.
func (s *Predictions) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	return s.store.Prune(ctx, olderThan)
}

type createFunc func(ctx context.Context) (*replicate.Prediction, error)

func (s *Predictions) submit(ctx context.Context, kind domain.PredictionType, input map[string]any, create createFunc) (*domain.Prediction, error) {
	rawInput, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	now := time.Now().UTC()
	record := &domain.Prediction{
		ID:        domain.NewPredictionID(now),
		Type:      kind,
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		Input:     rawInput,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("store prediction: %w", err)
	}
	go s.fulfill(record.ID, create)
	return record.Clone(), nil
}

// fulfill drives one record to a terminal state. Every exit path, panic
// included, leaves the record terminal; the submitting request has long
// since returned, so failures land on the record instead of a caller.
func (s *Predictions) fulfill(id string, create createFunc) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("prediction_id", id).Interface("panic", r).Msg("fulfillment panicked")
			s.markFailed(ctx, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	remote, err := create(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("prediction_id", id).Msg("remote prediction create failed")
		s.markFailed(ctx, id, replicate.Reason(err))
		return
	}
	if err := s.store.Patch(ctx, id, store.Patch{RemoteID: &remote.ID}); err != nil {
		s.logger.Error().Err(err).Str("prediction_id", id).Msg("record remote id failed")
	}

	result := s.poll(ctx, id, remote)

	switch {
	case result.Status == replicate.StatusSucceeded:
		s.markSucceeded(ctx, id, result.Output)
	case result.Status == replicate.StatusFailed:
		reason := result.Error
		if reason == "" {
			reason = "prediction failed"
		}
		s.markFailed(ctx, id, reason)
	default:
		s.markFailed(ctx, id, fmt.Sprintf("prediction timed out after %s", time.Duration(s.maxPolls)*s.interval))
	}
}

// poll checks the remote job at a fixed interval until it turns terminal
// or the attempt budget runs out. Transport errors do not abort the loop
// and consume the same budget as successful polls.
func (s *Predictions) poll(ctx context.Context, id string, initial *replicate.Prediction) *replicate.Prediction {
	result := initial
	for attempt := 1; attempt <= s.maxPolls && !result.Terminal(); attempt++ {
		time.Sleep(s.interval)
		latest, err := s.remote.GetPrediction(ctx, initial.ID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("prediction_id", id).
				Int("attempt", attempt).
				Msg("poll failed, continuing")
			continue
		}
		result = latest
	}
	return result
}

func (s *Predictions) markSucceeded(ctx context.Context, id string, output json.RawMessage) {
	status := domain.StatusSucceeded
	now := time.Now().UTC()
	if err := s.store.Patch(ctx, id, store.Patch{
		Status:      &status,
		Output:      output,
		CompletedAt: &now,
	}); err != nil {
		s.logger.Error().Err(err).Str("prediction_id", id).Msg("record success failed")
		return
	}
	s.logger.Info().Str("prediction_id", id).Msg("prediction succeeded")
}

func (s *Predictions) markFailed(ctx context.Context, id string, reason string) {
	status := domain.StatusFailed
	now := time.Now().UTC()
	if err := s.store.Patch(ctx, id, store.Patch{
		Status:      &status,
		Error:       &reason,
		CompletedAt: &now,
	}); err != nil {
		s.logger.Error().Err(err).Str("prediction_id", id).Msg("record failure failed")
		return
	}
	s.logger.Info().Str("prediction_id", id).Str("reason", reason).Msg("prediction failed")
}

func validate(input map[string]any, required []string) error {
	var missing []string
	for _, field := range required {
		v, ok := input[field]
		if !ok || isEmptyValue(v) {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	received := make([]string, 0, len(input))
	for k := range input {
		received = append(received, k)
	}
	sort.Strings(received)
	return &ValidationError{Required: required, Missing: missing, Received: received}
}

func isEmptyValue(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func stringOr(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intOr(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func floatOr(input map[string]any, key string, fallback float64) float64 {
	switch v := input[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
