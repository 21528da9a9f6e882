package handlers

import (
	"encoding/json"
	"net/http"

	"imagestudio/internal/mask"
)

type maskRequest struct {
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Strokes []mask.Stroke `json:"strokes"`
}

// RasterizeMask renders recorded brush and eraser strokes into the
// black/white mask bitmap the inpainting endpoint consumes, for clients
// that have no canvas of their own.
func (a *App) RasterizeMask(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Strokes) == 0 {
		a.error(w, http.StatusBadRequest, "strokes required")
		return
	}
	img, err := mask.Rasterize(req.Strokes, req.Width, req.Height)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	uri, err := mask.EncodeDataURI(img)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to encode mask")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"mask": uri})
}
