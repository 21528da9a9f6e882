package handlers_test

import (
	stdzip "archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagestudio/internal/infra"
	"imagestudio/internal/middleware"
)

func TestGalleryLifecycle(t *testing.T) {
	router := newStudioServer(t, succeedingBackend(), nil)

	// Empty gallery lists as an empty array, not null.
	rec := doJSON(t, router, http.MethodGet, "/api/gallery/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{}, body["items"])

	first := doJSON(t, router, http.MethodPost, "/api/gallery/", map[string]any{
		"imageUrl": "http://x/1.png",
		"prompt":   "a fox",
		"type":     "text-to-image",
	})
	require.Equal(t, http.StatusCreated, first.Code)
	firstID, _ := decodeBody(t, first)["id"].(string)
	require.NotEmpty(t, firstID)

	second := doJSON(t, router, http.MethodPost, "/api/gallery/", map[string]any{
		"imageUrl": "http://x/2.png",
		"prompt":   "a wolf",
		"type":     "inpainting",
	})
	require.Equal(t, http.StatusCreated, second.Code)
	secondID, _ := decodeBody(t, second)["id"].(string)

	rec = doJSON(t, router, http.MethodGet, "/api/gallery/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, _ := decodeBody(t, rec)["items"].([]any)
	require.Len(t, items, 2)
	newest, _ := items[0].(map[string]any)
	assert.Equal(t, secondID, newest["id"])
	assert.Equal(t, "Inpainting", newest["label"])
	oldest, _ := items[1].(map[string]any)
	assert.Equal(t, "Text To Image", oldest["label"])

	del := doJSON(t, router, http.MethodDelete, "/api/gallery/"+secondID, nil)
	assert.Equal(t, http.StatusNoContent, del.Code)
	gone := doJSON(t, router, http.MethodDelete, "/api/gallery/"+secondID, nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)

	cleared := doJSON(t, router, http.MethodDelete, "/api/gallery/", nil)
	assert.Equal(t, http.StatusNoContent, cleared.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/gallery/", nil)
	assert.Equal(t, []any{}, decodeBody(t, rec)["items"])
}

func TestGalleryAddRequiresImageURL(t *testing.T) {
	router := newStudioServer(t, succeedingBackend(), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/gallery/", map[string]any{"prompt": "no image"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryArchive(t *testing.T) {
	router := newStudioServer(t, succeedingBackend(), nil)

	// One inline image and one remote URL.
	inline := doJSON(t, router, http.MethodPost, "/api/gallery/", map[string]any{
		"imageUrl": "data:image/png;base64,aW1hZ2UtYnl0ZXM=",
		"type":     "text-to-image",
	})
	require.Equal(t, http.StatusCreated, inline.Code)
	inlineID, _ := decodeBody(t, inline)["id"].(string)

	remote := doJSON(t, router, http.MethodPost, "/api/gallery/", map[string]any{
		"imageUrl": "http://x/2.png",
		"type":     "inpainting",
	})
	require.Equal(t, http.StatusCreated, remote.Code)
	remoteID, _ := decodeBody(t, remote)["id"].(string)

	rec := doJSON(t, router, http.MethodGet, "/api/gallery/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	reader, err := stdzip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	files := map[string][]byte{}
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		buf := new(bytes.Buffer)
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = buf.Bytes()
	}
	require.Len(t, files, 2)
	assert.Equal(t, []byte("image-bytes"), files[inlineID+".png"], "data URI decodes into a real file")
	assert.Equal(t, []byte("http://x/2.png"), files[remoteID+".txt"], "remote URL becomes a pointer file")
}

func TestAuthScopesGalleryByUser(t *testing.T) {
	const secret = "test-secret"
	router := newStudioServer(t, succeedingBackend(), func(cfg *infra.Config) {
		cfg.AuthRequired = true
		cfg.JWTSecret = secret
	})

	// No token is rejected outright.
	unauth := doJSON(t, router, http.MethodGet, "/api/gallery/", nil)
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)

	tokenFor := func(sub string) string {
		token, err := middleware.SignJWT(secret, middleware.TokenClaims{
			Sub: sub,
			Exp: time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)
		return token
	}
	authed := func(method, path, token string, body map[string]any) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	alice := tokenFor("user-alice")
	bob := tokenFor("user-bob")

	added := authed(http.MethodPost, "/api/gallery/", alice, map[string]any{"imageUrl": "http://x/1.png"})
	require.Equal(t, http.StatusCreated, added.Code)

	mine := authed(http.MethodGet, "/api/gallery/", alice, nil)
	require.Equal(t, http.StatusOK, mine.Code)
	items, _ := decodeBody(t, mine)["items"].([]any)
	assert.Len(t, items, 1)

	theirs := authed(http.MethodGet, "/api/gallery/", bob, nil)
	require.Equal(t, http.StatusOK, theirs.Code)
	assert.Equal(t, []any{}, decodeBody(t, theirs)["items"])

	// Tampered token fails verification.
	bad := authed(http.MethodGet, "/api/gallery/", alice+"x", nil)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}
