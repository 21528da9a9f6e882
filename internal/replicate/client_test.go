package replicate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientCreatePrediction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token test-token" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if r.URL.Path != "/predictions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload struct {
			Version string         `json:"version"`
			Input   map[string]any `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if payload.Version != InpaintingVersion {
			t.Fatalf("unexpected version: %s", payload.Version)
		}
		if payload.Input["prompt"] != "fill the sky" {
			t.Fatalf("unexpected prompt: %v", payload.Input["prompt"])
		}
		_ = json.NewEncoder(w).Encode(Prediction{ID: "rpl_1", Status: "starting"})
	}))
	defer ts.Close()

	client := NewClient(Options{Token: "test-token", BaseURL: ts.URL})
	got, err := client.CreatePrediction(context.Background(), InpaintingVersion, map[string]any{"prompt": "fill the sky"})
	if err != nil {
		t.Fatalf("CreatePrediction error: %v", err)
	}
	if got.ID != "rpl_1" || got.Status != "starting" {
		t.Fatalf("unexpected prediction: %+v", got)
	}
	if got.Terminal() {
		t.Fatal("starting must not be terminal")
	}
}

func TestClientCreateModelPredictionPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/"+TextToImageModel+"/predictions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Prediction{ID: "rpl_2", Status: "processing"})
	}))
	defer ts.Close()

	client := NewClient(Options{Token: "test-token", BaseURL: ts.URL})
	got, err := client.CreateModelPrediction(context.Background(), TextToImageModel, map[string]any{"prompt": "a red fox"})
	if err != nil {
		t.Fatalf("CreateModelPrediction error: %v", err)
	}
	if got.ID != "rpl_2" {
		t.Fatalf("unexpected prediction id: %s", got.ID)
	}
}

func TestClientGetPrediction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions/rpl_1" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Prediction{
			ID:     "rpl_1",
			Status: StatusSucceeded,
			Output: json.RawMessage(`["http://x/img.png"]`),
		})
	}))
	defer ts.Close()

	client := NewClient(Options{Token: "test-token", BaseURL: ts.URL})
	got, err := client.GetPrediction(context.Background(), "rpl_1")
	if err != nil {
		t.Fatalf("GetPrediction error: %v", err)
	}
	if !got.Terminal() {
		t.Fatalf("expected terminal status, got %q", got.Status)
	}
	if string(got.Output) != `["http://x/img.png"]` {
		t.Fatalf("unexpected output: %s", got.Output)
	}
}

func TestClientSurfacesErrorDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "insufficient credit"})
	}))
	defer ts.Close()

	client := NewClient(Options{Token: "test-token", BaseURL: ts.URL})
	_, err := client.CreatePrediction(context.Background(), InpaintingVersion, map[string]any{"prompt": "x"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if got := Reason(err); got != "insufficient credit" {
		t.Fatalf("Reason mismatch: got %q", got)
	}
}

func TestClientMissingToken(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.GetPrediction(context.Background(), "rpl_1"); err == nil {
		t.Fatal("expected error when API token missing")
	}
}
