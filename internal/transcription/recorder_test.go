package transcription

import (
	"context"
	"testing"
)

type fakeTranscriber struct {
	result *Result
	err    error
	calls  int
	last   []byte
	lang   string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, language string) (*Result, error) {
	f.calls++
	f.last = audio
	f.lang = language
	return f.result, f.err
}

func TestRecorderCapturesAndTranscribes(t *testing.T) {
	fake := &fakeTranscriber{result: &Result{Text: "good morning", Language: "en"}}
	rec := NewRecorder(fake, testLogger())
	rec.SetLanguage("en")

	if err := rec.StartCapture(); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	rec.AppendAudio(make([]byte, 1000))
	rec.AppendAudio(make([]byte, 1000))

	result, err := rec.StopCapture(context.Background())
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if result == nil || result.Text != "good morning" {
		t.Fatalf("expected transcript, got %+v", result)
	}
	if len(fake.last) != 2000 {
		t.Errorf("expected 2000 buffered bytes, got %d", len(fake.last))
	}
	if fake.lang != "en" {
		t.Errorf("expected language hint en, got %q", fake.lang)
	}
}

func TestRecorderDropsFramesWhenIdle(t *testing.T) {
	fake := &fakeTranscriber{result: &Result{Text: "ignored"}}
	rec := NewRecorder(fake, testLogger())

	rec.AppendAudio(make([]byte, 4000))

	result, err := rec.StopCapture(context.Background())
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result without active capture, got %+v", result)
	}
	if fake.calls != 0 {
		t.Errorf("expected no transcriber calls, got %d", fake.calls)
	}
}

func TestRecorderDiscardsShortCapture(t *testing.T) {
	fake := &fakeTranscriber{result: &Result{Text: "noise"}}
	rec := NewRecorder(fake, testLogger())

	rec.StartCapture()
	rec.AppendAudio(make([]byte, 100))

	result, err := rec.StopCapture(context.Background())
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if result != nil {
		t.Fatalf("expected short capture discarded, got %+v", result)
	}
	if fake.calls != 0 {
		t.Errorf("expected no transcriber calls, got %d", fake.calls)
	}
}

func TestRecorderEmptyTranscriptIsNil(t *testing.T) {
	fake := &fakeTranscriber{result: &Result{Text: "   "}}
	rec := NewRecorder(fake, testLogger())

	rec.StartCapture()
	rec.AppendAudio(make([]byte, 4000))

	result, err := rec.StopCapture(context.Background())
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result for blank transcript, got %+v", result)
	}
}

func TestRecorderCancelDiscardsBuffer(t *testing.T) {
	fake := &fakeTranscriber{result: &Result{Text: "dropped"}}
	rec := NewRecorder(fake, testLogger())

	rec.StartCapture()
	rec.AppendAudio(make([]byte, 4000))
	rec.Cancel()

	result, err := rec.StopCapture(context.Background())
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil after cancel, got %+v", result)
	}
	if fake.calls != 0 {
		t.Errorf("expected no transcriber calls after cancel, got %d", fake.calls)
	}
}
