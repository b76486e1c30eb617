package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/algesten/caudio/internal/logging"
)

type settings struct {
	SampleRate float64
	Channels   int
	Buffers    int
	Frames     int
	Duration   float64
	Device     string
	Output     string
	LogFile    string
	Debug      bool
}

func rootCommand() *cobra.Command {
	var (
		cfg      settings
		logClose func() error
	)

	rootCmd := &cobra.Command{
		Use:           "caudio",
		Short:         "Audio queue and unit playground",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg.SampleRate = viper.GetFloat64("sample-rate")
			cfg.Channels = viper.GetInt("channels")
			cfg.Buffers = viper.GetInt("buffers")
			cfg.Frames = viper.GetInt("frames")
			cfg.Duration = viper.GetFloat64("duration")
			cfg.Device = viper.GetString("device")
			cfg.Output = viper.GetString("output")
			cfg.LogFile = viper.GetString("log-file")
			cfg.Debug = viper.GetBool("debug")

			level := slog.LevelInfo
			if cfg.Debug {
				level = slog.LevelDebug
			}
			logging.InitWithOptions(cmd.ErrOrStderr(), level)

			if cfg.LogFile != "" {
				logger, closer, err := logging.NewFileLogger(cfg.LogFile, "caudio", level, logging.FileLoggerOptions{})
				if err != nil {
					return err
				}
				slog.SetDefault(logger)
				logClose = closer
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logClose != nil {
				logClose() //nolint:errcheck
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.Float64("sample-rate", 48000, "sample rate in Hz")
	flags.Int("channels", 2, "channels per frame")
	flags.Int("buffers", 4, "pool size for playback queues")
	flags.Int("frames", 1024, "frames per pool buffer")
	flags.Float64("duration", 3, "seconds to play or record")
	flags.String("device", "", "device name substring to select")
	flags.String("output", "capture.wav", "output file for record")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.Bool("debug", false, "enable debug logging")
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(devicesCommand(&cfg), playCommand(&cfg), recordCommand(&cfg))
	return rootCmd
}
