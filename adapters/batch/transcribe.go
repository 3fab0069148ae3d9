package batch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/domain/repositories"
)

type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// TranscribeJobs runs Amazon Transcribe batch jobs
type TranscribeJobs struct {
	client transcribeAPI
	logger *zap.Logger
}

func NewTranscribeJobs(cfg aws.Config, logger *zap.Logger) *TranscribeJobs {
	return &TranscribeJobs{
		client: transcribe.NewFromConfig(cfg),
		logger: logger,
	}
}

func (t *TranscribeJobs) StartJob(ctx context.Context, job *entities.TranscriptionJob) error {
	if _, err := t.client.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(job.Name),
		LanguageCode:         types.LanguageCode(job.Language),
		MediaFormat:          types.MediaFormat(job.MediaFormat),
		Media:                &types.Media{MediaFileUri: aws.String(job.MediaURI())},
		Settings: &types.Settings{
			ShowSpeakerLabels: aws.Bool(false),
			ShowAlternatives:  aws.Bool(false),
		},
	}); err != nil {
		return fmt.Errorf("failed to start transcription job %s: %w", job.Name, err)
	}
	t.logger.Info("Transcription job started",
		zap.String("job", job.Name),
		zap.String("media", job.MediaURI()),
		zap.String("format", job.MediaFormat))
	return nil
}

func (t *TranscribeJobs) GetJob(ctx context.Context, name string) (repositories.JobState, error) {
	out, err := t.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	if err != nil {
		return repositories.JobState{}, fmt.Errorf("failed to get transcription job %s: %w", name, err)
	}
	if out.TranscriptionJob == nil {
		return repositories.JobState{}, fmt.Errorf("transcription job %s: empty response", name)
	}

	j := out.TranscriptionJob
	state := repositories.JobState{
		Status:        entities.JobStatus(j.TranscriptionJobStatus),
		FailureReason: aws.ToString(j.FailureReason),
	}
	if j.Transcript != nil {
		state.TranscriptURI = aws.ToString(j.Transcript.TranscriptFileUri)
	}
	return state, nil
}

var _ repositories.BatchTranscriber = (*TranscribeJobs)(nil)
