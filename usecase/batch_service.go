package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/internal/saga"
	"github.com/satriahrh/radiocaption/internal/saga/batch"
)

// BatchService transcribes local files through the batch workflow
type BatchService struct {
	workflow *batch.Workflow
	sagas    *saga.Manager
	logger   *zap.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(workflow *batch.Workflow, sagas *saga.Manager, logger *zap.Logger) *BatchService {
	return &BatchService{
		workflow: workflow,
		sagas:    sagas,
		logger:   logger,
	}
}

// TranscribeFile uploads inputFile, waits for its transcription and writes
// the result document to outputPath. Temporary cloud resources are removed
// whether or not the job succeeds.
func (s *BatchService) TranscribeFile(ctx context.Context, inputFile, outputPath, language string) (*entities.TranscriptionJob, error) {
	if inputFile == "" {
		return nil, fmt.Errorf("input file is required")
	}
	if language == "" {
		return nil, fmt.Errorf("language is required")
	}

	job := entities.NewTranscriptionJob(inputFile, language)
	s.logger.Info("Starting batch transcription",
		zap.String("job", job.Name),
		zap.String("bucket", job.Bucket),
		zap.String("input", inputFile))

	instance, err := s.sagas.Run(ctx, s.workflow.Definition(job, outputPath))
	if err != nil {
		s.logger.Error("Batch transcription failed",
			zap.String("job", job.Name),
			zap.String("sagaID", string(instance.ID)),
			zap.Error(err))
		return job, err
	}

	s.logger.Info("Batch transcription completed",
		zap.String("job", job.Name),
		zap.String("output", outputPath))
	return job, nil
}
