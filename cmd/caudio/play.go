package main

import (
	"context"
	"math"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/internal/logging"
	"github.com/algesten/caudio/malgohost"
	"github.com/algesten/caudio/queue"
)

func playCommand(cfg *settings) *cobra.Command {
	var frequency float64

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a sine wave through a buffer pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd.Context(), cfg, frequency)
		},
	}
	cmd.Flags().Float64Var(&frequency, "frequency", 440, "sine frequency in Hz")
	return cmd
}

func runPlay(ctx context.Context, cfg *settings, frequency float64) error {
	log := logging.ForService("play")

	host, err := malgohost.New(logging.ForService("malgohost"))
	if err != nil {
		return err
	}
	defer host.Close()

	if err := host.SelectDevice(malgohost.Playback, cfg.Device); err != nil {
		return err
	}

	f := format.New(cfg.SampleRate, format.SampleFormatF32, 0, cfg.Channels)
	q, err := queue.NewOutput[float32](host, f, queue.Options{
		Buffers:  cfg.Buffers,
		Capacity: cfg.Frames * cfg.Channels,
	})
	if err != nil {
		return err
	}
	defer q.Close()

	if err := q.Start(); err != nil {
		return err
	}
	log.Info("playing", "frequency", frequency, "duration", cfg.Duration)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Duration*float64(time.Second)))
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		step := 2 * math.Pi * frequency / cfg.SampleRate
		phase := 0.0
		for {
			lease, err := q.AcquireContext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			samples := lease.Buffer().Samples()
			for i := 0; i < len(samples); i += cfg.Channels {
				v := float32(math.Sin(phase))
				phase += step
				for c := 0; c < cfg.Channels; c++ {
					samples[i+c] = v
				}
			}

			if err := lease.Submit(); err != nil {
				return err
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return q.Stop(false)
}
