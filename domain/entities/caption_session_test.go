package entities

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCaptionSessionCreation(t *testing.T) {
	session := NewCaptionSession("http://example.com/radio.aac", "fr-FR", "aws", 16000)

	if session.ID == "" {
		t.Error("Expected session ID to be generated")
	}

	if session.Status != SessionStatusStarting {
		t.Errorf("Expected status %s, got %s", SessionStatusStarting, session.Status)
	}

	if session.EndedAt != nil {
		t.Error("Expected EndedAt to be unset")
	}

	if err := session.Validate(); err != nil {
		t.Errorf("Expected valid session, got %v", err)
	}
}

func TestCaptionSessionLifecycle(t *testing.T) {
	session := NewCaptionSession("http://example.com/radio.aac", "fr-FR", "aws", 16000)

	session.MarkRunning()
	if session.IsFinished() {
		t.Error("Running session should not be finished")
	}

	session.Complete("stalled")
	if !session.IsFinished() {
		t.Error("Completed session should be finished")
	}
	if session.EndReason != "stalled" {
		t.Errorf("Expected end reason stalled, got %s", session.EndReason)
	}
	if session.EndedAt == nil {
		t.Fatal("Expected EndedAt to be set")
	}
	if session.Duration() < 0 {
		t.Error("Duration should not be negative")
	}
}

func TestCaptionSessionFail(t *testing.T) {
	session := NewCaptionSession("http://example.com/radio.aac", "fr-FR", "aws", 16000)
	session.Fail(errors.New("decoder exited abnormally"))

	if session.Status != SessionStatusFailed {
		t.Errorf("Expected status %s, got %s", SessionStatusFailed, session.Status)
	}
	if session.Error != "decoder exited abnormally" {
		t.Errorf("Unexpected error message %q", session.Error)
	}
}

func TestCaptionSessionValidate(t *testing.T) {
	session := NewCaptionSession("", "fr-FR", "aws", 16000)
	if err := session.Validate(); err == nil {
		t.Error("Expected error for missing stream URL")
	}

	session = NewCaptionSession("http://example.com", "fr-FR", "aws", 16000)
	session.Status = "bogus"
	if err := session.Validate(); err == nil {
		t.Error("Expected error for invalid status")
	}
}

func TestTranscriptEventLine(t *testing.T) {
	at := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)

	partial := TranscriptEvent{Partial: true, Text: "bonjour", ReceivedAt: at}
	if got := partial.Line(); got != "[14:05:09] [PARTIAL] bonjour" {
		t.Errorf("Unexpected partial line %q", got)
	}
	if partial.Kind() != "partial" {
		t.Errorf("Expected kind partial, got %s", partial.Kind())
	}

	final := TranscriptEvent{Text: "bonjour à tous", ReceivedAt: at}
	if got := final.Line(); got != "[14:05:09] [FINAL] bonjour à tous" {
		t.Errorf("Unexpected final line %q", got)
	}

	segment := NewTranscriptSegment(final, 3)
	if segment.Timestamp != "14:05:09" || segment.Sequence != 3 || segment.Transcript != final.Text {
		t.Errorf("Unexpected segment %+v", segment)
	}
}

func TestNewTranscriptionJob(t *testing.T) {
	job := NewTranscriptionJob("/tmp/recordings/test_audio.WAV", "fr-FR")

	if !strings.HasPrefix(job.Name, "test-transcription-") {
		t.Errorf("Unexpected job name %s", job.Name)
	}
	if !strings.HasPrefix(job.Bucket, "transcribe-test-") || strings.Contains(job.Bucket[len("transcribe-test-"):], "-") {
		t.Errorf("Unexpected bucket name %s", job.Bucket)
	}
	if job.Key != "test_audio.WAV" {
		t.Errorf("Expected key test_audio.WAV, got %s", job.Key)
	}
	if job.MediaFormat != "wav" {
		t.Errorf("Expected media format wav, got %s", job.MediaFormat)
	}
	if job.MediaURI() != "s3://"+job.Bucket+"/test_audio.WAV" {
		t.Errorf("Unexpected media URI %s", job.MediaURI())
	}
	if job.Status.IsTerminal() {
		t.Error("New job should not be terminal")
	}
}
