package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/capture"
	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/logging"
	"github.com/algesten/caudio/malgohost"
	"github.com/algesten/caudio/queue"
)

func recordCommand(cfg *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Record from the default capture device into a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd.Context(), cfg)
		},
	}
}

func runRecord(ctx context.Context, cfg *settings) error {
	log := logging.ForService("record")

	host, err := malgohost.New(logging.ForService("malgohost"))
	if err != nil {
		return err
	}
	defer host.Close()

	if err := host.SelectDevice(malgohost.Capture, cfg.Device); err != nil {
		return err
	}

	f := format.New(cfg.SampleRate, format.SampleFormatI16, 0, cfg.Channels)
	window := time.Duration(cfg.Duration * float64(time.Second))

	tap, err := capture.NewTapWindow[int16](f, window)
	if err != nil {
		return err
	}

	q, err := queue.NewInput[int16](host, f, func(_ *hostapi.TimeStamp, b *buffer.Buffer[int16]) {
		tap.Write(b.Samples())
	}, queue.Options{})
	if err != nil {
		return err
	}
	defer q.Close()

	if err := q.Start(); err != nil {
		return err
	}
	log.Info("recording", "duration", cfg.Duration, "output", cfg.Output)

	select {
	case <-ctx.Done():
	case <-time.After(window):
	}

	if err := q.Stop(false); err != nil {
		return err
	}
	if dropped := tap.Dropped(); dropped > 0 {
		log.Warn("capture window overflowed", "dropped_samples", dropped)
	}

	samples := tap.Drain()
	if err := capture.SaveWAV(cfg.Output, f, samples); err != nil {
		return err
	}
	log.Info("saved", "path", cfg.Output, "samples", len(samples))
	return nil
}
