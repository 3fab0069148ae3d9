package stt

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// AWSSpeechToText implements SpeechToText with Amazon Transcribe Streaming
type AWSSpeechToText struct {
	client *transcribestreaming.Client
	logger *zap.Logger
}

// NewAWSSpeechToText loads the default AWS credential chain for region.
// endpoint overrides the service URL when non-empty.
func NewAWSSpeechToText(ctx context.Context, region, endpoint string, logger *zap.Logger) (*AWSSpeechToText, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var opts []func(*transcribestreaming.Options)
	if endpoint != "" {
		opts = append(opts, func(o *transcribestreaming.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	logger.Debug("Transcribe streaming client created", zap.String("region", cfg.Region))

	return &AWSSpeechToText{
		client: transcribestreaming.NewFromConfig(cfg, opts...),
		logger: logger,
	}, nil
}

func (a *AWSSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	encoding, err := awsMediaEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	out, err := a.client.StartStreamTranscription(ctx, &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         types.LanguageCode(config.Language),
		MediaEncoding:        encoding,
		MediaSampleRateHertz: aws.Int32(int32(config.SampleRate)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start stream transcription: %w", err)
	}

	a.logger.Info("Transcribe streaming started",
		zap.String("language", config.Language),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("requestID", aws.ToString(out.SessionId)))

	s := &AWSSpeechToTextStream{
		stream: out.GetStream(),
		sink:   newResultSink(),
	}
	go s.receiveResults()

	return s, nil
}

// AWSSpeechToTextStream is one open Transcribe streaming session
type AWSSpeechToTextStream struct {
	stream *transcribestreaming.StartStreamTranscriptionEventStream
	sink   *resultSink
	err    error
}

func (s *AWSSpeechToTextStream) Stream(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := s.stream.Send(ctx, &types.AudioStreamMemberAudioEvent{
		Value: types.AudioEvent{AudioChunk: data},
	}); err != nil {
		return fmt.Errorf("failed to send audio event: %w", err)
	}
	return nil
}

// End sends the empty audio event that tells Transcribe the input is over
// and closes the writer side of the event stream.
func (s *AWSSpeechToTextStream) End(ctx context.Context) error {
	if err := s.stream.Send(ctx, &types.AudioStreamMemberAudioEvent{
		Value: types.AudioEvent{AudioChunk: []byte{}},
	}); err != nil {
		return fmt.Errorf("failed to send end of stream: %w", err)
	}
	if err := s.stream.Writer.Close(); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	return nil
}

func (s *AWSSpeechToTextStream) Results() <-chan repositories.TranscriptResult {
	return s.sink.results
}

func (s *AWSSpeechToTextStream) Err() error {
	return s.err
}

func (s *AWSSpeechToTextStream) Close() error {
	s.sink.stop()
	return s.stream.Close()
}

func (s *AWSSpeechToTextStream) receiveResults() {
	defer s.sink.finish()

	for event := range s.stream.Events() {
		e, ok := event.(*types.TranscriptResultStreamMemberTranscriptEvent)
		if !ok || e.Value.Transcript == nil {
			continue
		}
		for _, result := range e.Value.Transcript.Results {
			for _, alt := range result.Alternatives {
				text := strings.TrimSpace(aws.ToString(alt.Transcript))
				if text == "" {
					continue
				}
				if !s.sink.send(repositories.TranscriptResult{
					Partial: result.IsPartial,
					Text:    text,
				}) {
					return
				}
			}
		}
	}

	if err := s.stream.Err(); err != nil {
		s.err = fmt.Errorf("transcript stream failed: %w", err)
	}
}

func awsMediaEncoding(encoding string) (types.MediaEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "PCM", "LINEAR16":
		return types.MediaEncodingPcm, nil
	case "FLAC":
		return types.MediaEncodingFlac, nil
	case "OGG_OPUS":
		return types.MediaEncodingOggOpus, nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
