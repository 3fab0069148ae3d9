// Package batch defines the saga that transcribes one local file through
// object storage and an asynchronous transcription job.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/domain/repositories"
	"github.com/satriahrh/radiocaption/internal/saga"
)

// ErrJobFailed is returned when the transcription service gives up on a job
var ErrJobFailed = errors.New("transcription job failed")

// Step names
const (
	StepCreateBucket = "create_bucket"
	StepUpload       = "upload_media"
	StepStartJob     = "start_job"
	StepAwaitJob     = "await_job"
	StepSaveResult   = "save_result"
	StepCleanup      = "cleanup"
)

// Workflow builds batch transcription sagas
type Workflow struct {
	Storage      repositories.ObjectStorage
	Transcriber  repositories.BatchTranscriber
	Fetcher      repositories.ResultFetcher
	PollInterval time.Duration
	Timeout      time.Duration
	logger       *zap.Logger
}

// NewWorkflow creates a workflow polling every 5 seconds for at most an hour
func NewWorkflow(storage repositories.ObjectStorage, transcriber repositories.BatchTranscriber, fetcher repositories.ResultFetcher, logger *zap.Logger) *Workflow {
	return &Workflow{
		Storage:      storage,
		Transcriber:  transcriber,
		Fetcher:      fetcher,
		PollInterval: 5 * time.Second,
		Timeout:      time.Hour,
		logger:       logger,
	}
}

// Definition returns the steps for job. The result document is written
// indented to outputPath and the plain transcript is stored on job.
func (w *Workflow) Definition(job *entities.TranscriptionJob, outputPath string) saga.Definition {
	return saga.Definition{
		Name:    "batch_transcription",
		Timeout: w.Timeout,
		Steps: []saga.Step{
			saga.FuncStep{
				Name: StepCreateBucket,
				Do: func(ctx context.Context) error {
					return w.Storage.CreateBucket(ctx, job.Bucket)
				},
				Undo: func(ctx context.Context) error {
					return w.Storage.DeleteBucket(ctx, job.Bucket)
				},
			},
			saga.FuncStep{
				Name: StepUpload,
				Do: func(ctx context.Context) error {
					return w.Storage.Upload(ctx, job.Bucket, job.Key, job.InputFile)
				},
				Undo: func(ctx context.Context) error {
					return w.Storage.DeleteObject(ctx, job.Bucket, job.Key)
				},
			},
			saga.FuncStep{
				Name: StepStartJob,
				Do: func(ctx context.Context) error {
					return w.Transcriber.StartJob(ctx, job)
				},
			},
			saga.FuncStep{
				Name: StepAwaitJob,
				Do: func(ctx context.Context) error {
					return w.await(ctx, job)
				},
			},
			saga.FuncStep{
				Name: StepSaveResult,
				Do: func(ctx context.Context) error {
					return w.save(ctx, job, outputPath)
				},
				Undo: func(ctx context.Context) error {
					err := os.Remove(outputPath)
					if errors.Is(err, os.ErrNotExist) {
						return nil
					}
					return err
				},
			},
			saga.FuncStep{
				Name: StepCleanup,
				Do: func(ctx context.Context) error {
					w.cleanup(ctx, job)
					return nil
				},
			},
		},
	}
}

// cleanup removes the uploaded media and its bucket. The transcript is
// already saved at this point, so failures are only logged.
func (w *Workflow) cleanup(ctx context.Context, job *entities.TranscriptionJob) {
	if err := w.Storage.DeleteObject(ctx, job.Bucket, job.Key); err != nil {
		w.logger.Warn("Failed to delete uploaded media",
			zap.String("bucket", job.Bucket),
			zap.String("key", job.Key),
			zap.Error(err))
	}
	if err := w.Storage.DeleteBucket(ctx, job.Bucket); err != nil {
		w.logger.Warn("Failed to delete bucket",
			zap.String("bucket", job.Bucket),
			zap.Error(err))
		return
	}
	w.logger.Info("Temporary storage cleaned up", zap.String("bucket", job.Bucket))
}

func (w *Workflow) await(ctx context.Context, job *entities.TranscriptionJob) error {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		state, err := w.Transcriber.GetJob(ctx, job.Name)
		if err != nil {
			return err
		}
		job.Status = state.Status

		if state.Status.IsTerminal() {
			if state.Status == entities.JobStatusFailed {
				job.FailureReason = state.FailureReason
				return fmt.Errorf("%w: %s", ErrJobFailed, state.FailureReason)
			}
			job.TranscriptURI = state.TranscriptURI
			return nil
		}

		w.logger.Info("Waiting for transcription job",
			zap.String("job", job.Name),
			zap.String("status", string(state.Status)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// resultDocument is the part of the job output the tool reads
type resultDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (w *Workflow) save(ctx context.Context, job *entities.TranscriptionJob, outputPath string) error {
	if job.TranscriptURI == "" {
		return errors.New("job finished without a transcript uri")
	}

	body, err := w.Fetcher.Fetch(ctx, job.TranscriptURI)
	if err != nil {
		return err
	}

	var doc resultDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("failed to decode transcript document: %w", err)
	}
	if len(doc.Results.Transcripts) > 0 {
		job.Transcript = doc.Results.Transcripts[0].Transcript
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, body, "", "  "); err != nil {
		return fmt.Errorf("failed to format transcript document: %w", err)
	}
	if err := os.WriteFile(outputPath, indented.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	w.logger.Info("Transcription result saved", zap.String("path", outputPath))
	return nil
}
