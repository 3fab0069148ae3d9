package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satriahrh/radiocaption/adapters/ffmpeg"
	"github.com/satriahrh/radiocaption/usecase"
)

func newCaptureCmd(root *rootFlags) *cobra.Command {
	var (
		duration time.Duration
		output   string
		url      string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record a few seconds of the stream to WAV to check decoding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("duration") {
				cfg.Capture.Duration = duration
			}
			if cmd.Flags().Changed("output") {
				cfg.Capture.Output = output
			}
			if cmd.Flags().Changed("url") {
				cfg.Stream.URL = url
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			service := usecase.NewCaptureService(ffmpeg.NewRecorder(cfg.Stream.FFmpegPath, root.logger), root.logger)
			result, err := service.Capture(cmd.Context(), usecase.CaptureConfig{
				StreamURL:  cfg.Stream.URL,
				Duration:   cfg.Capture.Duration,
				SampleRate: cfg.Stream.SampleRate,
				Channels:   cfg.Stream.Channels,
				OutputPath: cfg.Capture.Output,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File created: %s (%d bytes)\n", result.WAVPath, result.WAVBytes)
			fmt.Fprintf(out, "PCM sample: %d bytes, WAV for listening: %s\n", result.PCMBytes, result.ListenWAV)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "How long to record (default from config, 10s)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "WAV output path (default from config, test_audio.wav)")
	cmd.Flags().StringVar(&url, "url", "", "Stream URL to record")

	return cmd
}
