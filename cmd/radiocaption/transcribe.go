package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satriahrh/radiocaption/adapters/batch"
	"github.com/satriahrh/radiocaption/internal/saga"
	sagabatch "github.com/satriahrh/radiocaption/internal/saga/batch"
	"github.com/satriahrh/radiocaption/usecase"
)

func newTranscribeFileCmd(root *rootFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "transcribe-file [input]",
		Short: "Transcribe a local audio file with a batch transcription job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			logger := root.logger
			if len(args) == 1 {
				cfg.Batch.Input = args[0]
			}
			if cmd.Flags().Changed("output") {
				cfg.Batch.Output = output
			}

			if _, err := os.Stat(cfg.Batch.Input); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file %s does not exist, run the capture command first to create it", cfg.Batch.Input)
			}

			ctx := cmd.Context()
			awsCfg, err := batch.LoadAWSConfig(ctx, cfg.Batch.Region)
			if err != nil {
				return err
			}

			workflow := sagabatch.NewWorkflow(
				batch.NewS3Storage(awsCfg, logger),
				batch.NewTranscribeJobs(awsCfg, logger),
				batch.NewHTTPFetcher(),
				logger,
			)
			workflow.PollInterval = cfg.Batch.PollInterval
			workflow.Timeout = cfg.Batch.Timeout

			service := usecase.NewBatchService(workflow, saga.NewManager(logger, nil), logger)

			job, err := service.TranscribeFile(ctx, cfg.Batch.Input, cfg.Batch.Output, cfg.Stream.Language)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rule := strings.Repeat("-", 50)
			fmt.Fprintln(out, "Transcription successful:")
			fmt.Fprintln(out, rule)
			fmt.Fprintln(out, job.Transcript)
			fmt.Fprintln(out, rule)
			fmt.Fprintf(out, "Complete result saved to: %s\n", cfg.Batch.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to save the result document (default from config)")

	return cmd
}
