package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a Google Cloud recognizer. Credentials come
// from the environment (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	// Convert encoding string to Google Speech API enum
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	// Create Google Cloud Speech client
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	// Create streaming recognize request
	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	// Configure recognition settings
	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:          encoding,
		SampleRateHertz:   int32(config.SampleRate),
		AudioChannelCount: int32(config.Channels),
		LanguageCode:      config.Language,
	}

	// Send initial configuration; live captions want interim results and a
	// stream that does not stop after the first utterance
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:          recognitionConfig,
				InterimResults:  true,
				SingleUtterance: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	g.logger.Info("Google streaming recognition started",
		zap.String("language", config.Language),
		zap.Int("sampleRate", config.SampleRate))

	streamInstance := &GoogleSpeechToTextStream{
		client: client,
		stream: stream,
		sink:   newResultSink(),
	}
	go streamInstance.receiveResults()

	return streamInstance, nil
}

type GoogleSpeechToTextStream struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	sink   *resultSink
	err    error
}

func (g *GoogleSpeechToTextStream) Stream(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	// Send audio data to Google
	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}

	return nil
}

func (g *GoogleSpeechToTextStream) End(ctx context.Context) error {
	// Close the send stream to signal end of audio
	if err := g.stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send stream: %w", err)
	}
	return nil
}

func (g *GoogleSpeechToTextStream) Results() <-chan repositories.TranscriptResult {
	return g.sink.results
}

func (g *GoogleSpeechToTextStream) Err() error {
	return g.err
}

// Close stops result delivery and closes the client, which also ends a
// pending Recv
func (g *GoogleSpeechToTextStream) Close() error {
	g.sink.stop()
	return g.client.Close()
}

func (g *GoogleSpeechToTextStream) receiveResults() {
	defer g.sink.finish()

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			// Stream ended normally
			return
		}
		if err != nil {
			g.err = fmt.Errorf("failed to receive response: %w", err)
			return
		}
		if resp.Error != nil {
			g.err = fmt.Errorf("recognition error %d: %s", resp.Error.Code, resp.Error.Message)
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			// Take the best alternative
			text := strings.TrimSpace(result.Alternatives[0].Transcript)
			if text == "" {
				continue
			}
			if !g.sink.send(repositories.TranscriptResult{
				Partial: !result.IsFinal,
				Text:    text,
			}) {
				return
			}
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "PCM", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
