package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"imagestudio/internal/domain"
	"imagestudio/internal/mask"
	"imagestudio/internal/service"
)

type predictionRequest struct {
	Input map[string]any `json:"input"`
}

// TextToImage accepts a generation submission and answers with the initial
// processing record; fulfillment continues in the background.
func (a *App) TextToImage(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	record, err := a.Predictions.SubmitTextToImage(r.Context(), req.Input)
	if err != nil {
		a.submissionError(w, err)
		return
	}
	a.json(w, http.StatusOK, record)
}

// Inpainting accepts an inpainting submission. Clients may send recorded
// mask strokes instead of a rendered mask image; the handler rasterizes
// them before validation sees the input.
func (a *App) Inpainting(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := a.rasterizeInlineStrokes(req.Input); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	record, err := a.Predictions.SubmitInpainting(r.Context(), req.Input)
	if err != nil {
		a.submissionError(w, err)
		return
	}
	a.json(w, http.StatusOK, record)
}

// PredictionStatus reads the current record for an ID from the local store
// only. Outside production the not-found body lists the known IDs, which
// makes mistyped IDs obvious during development.
func (a *App) PredictionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := a.Predictions.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusInternalServerError, "failed to load prediction")
			return
		}
		body := map[string]any{
			"error":        "Prediction not found",
			"requested_id": id,
		}
		if !a.Config.Production() {
			ids, err := a.Predictions.KnownIDs(r.Context())
			if err == nil {
				if ids == nil {
					ids = []string{}
				}
				body["available_ids"] = ids
			}
		}
		a.json(w, http.StatusNotFound, body)
		return
	}
	a.json(w, http.StatusOK, record)
}

func (a *App) submissionError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		a.json(w, http.StatusBadRequest, map[string]any{
			"error":    "Missing required fields: " + strings.Join(ve.Missing, ", "),
			"required": ve.Required,
			"received": ve.Received,
		})
		return
	}
	a.Logger.Error().Err(err).Msg("submission failed")
	a.error(w, http.StatusInternalServerError, "failed to create prediction")
}

// rasterizeInlineStrokes replaces a mask_strokes array with a rendered
// mask data URI. Canvas dimensions come from the submission, falling back
// to the generation default.
func (a *App) rasterizeInlineStrokes(input map[string]any) error {
	if input == nil {
		return nil
	}
	if _, ok := input["mask"]; ok {
		return nil
	}
	raw, ok := input["mask_strokes"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return errors.New("invalid mask_strokes")
	}
	var strokes []mask.Stroke
	if err := json.Unmarshal(encoded, &strokes); err != nil {
		return errors.New("invalid mask_strokes")
	}
	width := intFromInput(input, "width", service.DefaultDimension)
	height := intFromInput(input, "height", service.DefaultDimension)
	img, err := mask.Rasterize(strokes, width, height)
	if err != nil {
		return err
	}
	uri, err := mask.EncodeDataURI(img)
	if err != nil {
		return err
	}
	input["mask"] = uri
	delete(input, "mask_strokes")
	return nil
}

func intFromInput(input map[string]any, key string, fallback int) int {
	if v, ok := input[key].(float64); ok && v > 0 {
		return int(v)
	}
	return fallback
}
