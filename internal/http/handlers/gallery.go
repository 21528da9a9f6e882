package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"imagestudio/internal/gallery"
	"imagestudio/internal/middleware"
	"imagestudio/pkg/zip"
)

// anonymousOwner scopes the gallery when the deployment runs without
// authentication.
const anonymousOwner = "anonymous"

type galleryItemResponse struct {
	gallery.Item
	Label string `json:"label,omitempty"`
}

func (a *App) galleryOwner(r *http.Request) string {
	if owner := middleware.UserIDFromContext(r.Context()); owner != "" {
		return owner
	}
	return anonymousOwner
}

// GalleryList returns the caller's saved results, newest first.
func (a *App) GalleryList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Gallery.List(r.Context(), a.galleryOwner(r))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to load gallery")
		return
	}
	out := make([]galleryItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, galleryItemResponse{Item: item, Label: gallery.TypeLabel(item.Type)})
	}
	a.json(w, http.StatusOK, map[string]any{"items": out})
}

// GalleryAdd saves one completed result.
func (a *App) GalleryAdd(w http.ResponseWriter, r *http.Request) {
	var item gallery.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(item.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "imageUrl required")
		return
	}
	saved, err := a.Gallery.Add(r.Context(), a.galleryOwner(r), item)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to save gallery item")
		return
	}
	a.json(w, http.StatusCreated, saved)
}

// GalleryRemove deletes one saved result by ID.
func (a *App) GalleryRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Gallery.Remove(r.Context(), a.galleryOwner(r), id); err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			a.error(w, http.StatusNotFound, "gallery item not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "failed to remove gallery item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GalleryClear wipes the caller's gallery.
func (a *App) GalleryClear(w http.ResponseWriter, r *http.Request) {
	if err := a.Gallery.Clear(r.Context(), a.galleryOwner(r)); err != nil {
		a.error(w, http.StatusInternalServerError, "failed to clear gallery")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GalleryArchive downloads the caller's gallery as a zip. Data-URI images
// are decoded into real files; remote URLs become small text pointers so
// the archive stays self-contained without refetching anything.
func (a *App) GalleryArchive(w http.ResponseWriter, r *http.Request) {
	items, err := a.Gallery.List(r.Context(), a.galleryOwner(r))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to load gallery")
		return
	}
	entries := make([]zip.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, archiveEntry(item))
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename=gallery.zip`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func archiveEntry(item gallery.Item) zip.Entry {
	url := strings.TrimSpace(item.ImageURL)
	if strings.HasPrefix(url, "data:") {
		if idx := strings.Index(url, ","); idx >= 0 {
			if data, err := base64.StdEncoding.DecodeString(url[idx+1:]); err == nil {
				return zip.Entry{Filename: item.ID + ".png", Data: data}
			}
		}
	}
	return zip.Entry{Filename: item.ID + ".txt", Data: []byte(url)}
}
