package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/satriahrh/radiocaption/internal/config"
)

type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "radiocaption",
		Short: "Live captions for internet radio streams",
		Long:  "radiocaption decodes an internet radio stream with ffmpeg and relays it to a streaming speech recognizer",
		Example: `  radiocaption stream
  radiocaption stream --provider mock --http=false
  radiocaption capture --duration 10s
  radiocaption transcribe-file test_audio.wav
  radiocaption watch --server localhost:8080`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath, flags.envFile)
			if err != nil {
				return err
			}
			if flags.logLevel != "" {
				cfg.Logging.Level = flags.logLevel
			}

			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return err
			}
			flags.cfg = cfg
			flags.logger = logger
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.logger != nil {
				_ = flags.logger.Sync()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Path to a .env file loaded before the environment")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newStreamCmd(flags))
	cmd.AddCommand(newCaptureCmd(flags))
	cmd.AddCommand(newTranscribeFileCmd(flags))
	cmd.AddCommand(newWatchCmd(flags))

	return cmd
}

// newLogger builds the process logger. Logs go to stderr so captions on
// stdout stay readable.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}
