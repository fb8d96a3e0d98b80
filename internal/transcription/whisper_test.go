package transcription

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWhisperClientTranscribe(t *testing.T) {
	var gotLanguage string
	var gotBytes int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotBytes = len(data)

		json.NewEncoder(w).Encode(Result{Text: "hello there", Language: "en", Confidence: 0.92})
	}))
	defer srv.Close()

	client := NewWhisperClient(Config{BaseURL: srv.URL}, testLogger())
	result, err := client.Transcribe(context.Background(), make([]byte, 4000), "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello there" {
		t.Errorf("expected text 'hello there', got %q", result.Text)
	}
	if result.Language != "en" {
		t.Errorf("expected language en, got %q", result.Language)
	}
	if gotLanguage != "en" {
		t.Errorf("expected language field en, got %q", gotLanguage)
	}
	if gotBytes != 4000 {
		t.Errorf("expected 4000 audio bytes, got %d", gotBytes)
	}
}

func TestWhisperClientOmitsEmptyLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("expected no language field")
		}
		json.NewEncoder(w).Encode(Result{Text: "ok", Language: "nl"})
	}))
	defer srv.Close()

	client := NewWhisperClient(Config{BaseURL: srv.URL}, testLogger())
	if _, err := client.Transcribe(context.Background(), make([]byte, 2000), ""); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestWhisperClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWhisperClient(Config{BaseURL: srv.URL}, testLogger())
	if _, err := client.Transcribe(context.Background(), make([]byte, 2000), ""); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestWhisperClientHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewWhisperClient(Config{BaseURL: srv.URL}, testLogger())
	if err := client.Healthy(context.Background()); err != nil {
		t.Fatalf("Healthy: %v", err)
	}
}
