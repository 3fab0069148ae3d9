package stt

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

func TestMockSpeechToText_ScriptedResults(t *testing.T) {
	mock := &MockSpeechToText{
		Phrases:         []string{"un deux trois quatre", "cinq six"},
		ChunksPerPhrase: 4,
		logger:          zap.NewNop(),
	}

	ctx := context.Background()
	stream, err := mock.InitTranscribeStreaming(ctx, repositories.AudioConfig{SampleRate: 16000, Channels: 1, Encoding: "PCM", Language: "fr-FR"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i := 0; i < 8; i++ {
		if err := stream.Stream(ctx, []byte{0, 1, 2, 3}); err != nil {
			t.Fatalf("Expected no error on chunk %d, got %v", i, err)
		}
	}
	if err := stream.End(ctx); err != nil {
		t.Fatalf("Expected no error on end, got %v", err)
	}

	var got []repositories.TranscriptResult
	for r := range stream.Results() {
		got = append(got, r)
	}

	want := []repositories.TranscriptResult{
		{Partial: true, Text: "un deux"},
		{Partial: false, Text: "un deux trois quatre"},
		{Partial: true, Text: "cinq"},
		{Partial: false, Text: "cinq six"},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d results, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected result %d to be %+v, got %+v", i, want[i], got[i])
		}
	}
	if stream.Err() != nil {
		t.Errorf("Expected no stream error, got %v", stream.Err())
	}
}

func TestMockSpeechToText_CloseIsIdempotent(t *testing.T) {
	stream, err := NewMockSpeechToText(zap.NewNop()).InitTranscribeStreaming(context.Background(), repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := stream.End(context.Background()); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Expected no error on second close, got %v", err)
	}
	if err := stream.Stream(context.Background(), []byte{1}); err != nil {
		t.Errorf("Expected stream after end to be ignored, got %v", err)
	}
	if n := stream.(*MockSpeechToTextStream).BytesReceived(); n != 0 {
		t.Errorf("Expected 0 bytes received after end, got %d", n)
	}
}

func TestGetAudioEncoding(t *testing.T) {
	if _, err := getAudioEncoding("pcm"); err != nil {
		t.Errorf("Expected PCM to be supported, got %v", err)
	}
	if _, err := getAudioEncoding("mp3"); err == nil {
		t.Error("Expected mp3 to be rejected")
	}
}

func TestAWSMediaEncoding(t *testing.T) {
	enc, err := awsMediaEncoding("PCM")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if enc != "pcm" {
		t.Errorf("Expected pcm, got %s", enc)
	}
	if _, err := awsMediaEncoding("aac"); err == nil {
		t.Error("Expected aac to be rejected")
	}
}
