package stt

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	speechkit "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// DefaultYandexEndpoint is the SpeechKit v3 gRPC endpoint
const DefaultYandexEndpoint = "stt.api.cloud.yandex.net:443"

// YandexConfig holds SpeechKit credentials
type YandexConfig struct {
	IamToken string
	FolderID string
	Endpoint string
}

// YandexSpeechToText implements SpeechToText with Yandex SpeechKit v3
type YandexSpeechToText struct {
	client   speechkit.RecognizerClient
	conn     *grpc.ClientConn
	iamToken string
	folderID string
	logger   *zap.Logger
}

func NewYandexSpeechToText(config YandexConfig, logger *zap.Logger) (*YandexSpeechToText, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultYandexEndpoint
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Yandex STT: %w", err)
	}

	return &YandexSpeechToText{
		client:   speechkit.NewRecognizerClient(conn),
		conn:     conn,
		iamToken: config.IamToken,
		folderID: config.FolderID,
		logger:   logger,
	}, nil
}

// Close closes the gRPC connection shared by all streams
func (y *YandexSpeechToText) Close() error {
	return y.conn.Close()
}

func (y *YandexSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	if enc := strings.ToUpper(config.Encoding); enc != "PCM" && enc != "LINEAR16" {
		return nil, fmt.Errorf("unsupported encoding: %s", config.Encoding)
	}

	// Create metadata with authorization
	md := metadata.Pairs(
		"authorization", "Bearer "+y.iamToken,
		"x-folder-id", y.folderID,
	)
	ctx, cancel := context.WithCancel(metadata.NewOutgoingContext(ctx, md))

	stream, err := y.client.RecognizeStreaming(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create streaming client: %w", err)
	}

	sessionOptions := &speechkit.StreamingRequest{
		Event: &speechkit.StreamingRequest_SessionOptions{
			SessionOptions: &speechkit.StreamingOptions{
				RecognitionModel: &speechkit.RecognitionModelOptions{
					AudioFormat: &speechkit.AudioFormatOptions{
						AudioFormat: &speechkit.AudioFormatOptions_RawAudio{
							RawAudio: &speechkit.RawAudio{
								AudioEncoding:     speechkit.RawAudio_LINEAR16_PCM,
								SampleRateHertz:   int64(config.SampleRate),
								AudioChannelCount: int64(config.Channels),
							},
						},
					},
					TextNormalization: &speechkit.TextNormalizationOptions{
						TextNormalization: speechkit.TextNormalizationOptions_TEXT_NORMALIZATION_ENABLED,
					},
					LanguageRestriction: &speechkit.LanguageRestrictionOptions{
						RestrictionType: speechkit.LanguageRestrictionOptions_WHITELIST,
						LanguageCode:    []string{config.Language},
					},
					AudioProcessingType: speechkit.RecognitionModelOptions_REAL_TIME,
				},
			},
		},
	}

	if err := stream.Send(sessionOptions); err != nil {
		stream.CloseSend()
		cancel()
		return nil, fmt.Errorf("failed to send session options: %w", err)
	}

	y.logger.Info("SpeechKit streaming started",
		zap.String("language", config.Language),
		zap.Int("sampleRate", config.SampleRate))

	return newYandexStream(stream, cancel), nil
}

// YandexSpeechToTextStream is one RecognizeStreaming call
type YandexSpeechToTextStream struct {
	stream speechkit.Recognizer_RecognizeStreamingClient
	cancel context.CancelFunc
	sink   *resultSink
	err    error
}

func newYandexStream(stream speechkit.Recognizer_RecognizeStreamingClient, cancel context.CancelFunc) *YandexSpeechToTextStream {
	s := &YandexSpeechToTextStream{
		stream: stream,
		cancel: cancel,
		sink:   newResultSink(),
	}
	go s.receiveResults()
	return s
}

func (s *YandexSpeechToTextStream) Stream(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := s.stream.Send(&speechkit.StreamingRequest{
		Event: &speechkit.StreamingRequest_Chunk{
			Chunk: &speechkit.AudioChunk{Data: data},
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

func (s *YandexSpeechToTextStream) End(ctx context.Context) error {
	if err := s.stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send stream: %w", err)
	}
	return nil
}

func (s *YandexSpeechToTextStream) Results() <-chan repositories.TranscriptResult {
	return s.sink.results
}

func (s *YandexSpeechToTextStream) Err() error {
	return s.err
}

// Close cancels the call and stops result delivery. The connection
// belongs to YandexSpeechToText.
func (s *YandexSpeechToTextStream) Close() error {
	s.sink.stop()
	s.cancel()
	return nil
}

func (s *YandexSpeechToTextStream) receiveResults() {
	defer s.sink.finish()

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.err = fmt.Errorf("failed to receive response: %w", err)
			return
		}

		delivered := true
		switch {
		case resp.GetPartial() != nil:
			delivered = s.emit(true, resp.GetPartial().GetAlternatives())
		case resp.GetFinal() != nil:
			delivered = s.emit(false, resp.GetFinal().GetAlternatives())
		}
		if !delivered {
			return
		}
	}
}

// emit sends the first alternative and reports false once the stream was closed
func (s *YandexSpeechToTextStream) emit(partial bool, alternatives []*speechkit.Alternative) bool {
	if len(alternatives) == 0 {
		return true
	}
	text := strings.TrimSpace(alternatives[0].GetText())
	if text == "" {
		return true
	}
	return s.sink.send(repositories.TranscriptResult{Partial: partial, Text: text})
}
