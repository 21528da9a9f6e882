// Package gallery keeps each user's completed generation results as an
// ordered list, newest first. It replaces the browser-local list the web
// client used to own, so results survive a cleared browser.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNotFound is returned when an item is absent from a user's gallery.
var ErrNotFound = errors.New("gallery item not found")

// Item is one saved result. Field names mirror the wire format the web
// client has always persisted.
type Item struct {
	ID         string          `json:"id"`
	ImageURL   string          `json:"imageUrl"`
	Prompt     string          `json:"prompt"`
	Type       string          `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// Store is the gallery persistence contract. List returns items newest
// first.
type Store interface {
	Add(ctx context.Context, owner string, item Item) (Item, error)
	List(ctx context.Context, owner string) ([]Item, error)
	Remove(ctx context.Context, owner, id string) error
	Clear(ctx context.Context, owner string) error
}

var titleCaser = cases.Title(language.English)

// TypeLabel renders a generation type for display, e.g. "text-to-image"
// becomes "Text To Image".
func TypeLabel(t string) string {
	return titleCaser.String(strings.ReplaceAll(t, "-", " "))
}

func prepare(item Item) Item {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	return item
}
