package capture

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/internal/errors"
)

// WriteWAV encodes signed 16-bit PCM samples as a WAV stream in the given
// format. Other sample formats are rejected rather than silently converted.
func WriteWAV(w io.WriteSeeker, f format.StreamFormat, samples []int16) error {
	if f.SampleFormat() != format.SampleFormatI16 {
		return errors.Newf("WAV export requires signed 16-bit samples, format is %s", f.SampleFormat()).
			Component("capture").
			Category(errors.CategoryFormat).
			Build()
	}

	intSamples := make([]int, len(samples))
	for i, s := range samples {
		intSamples[i] = int(s)
	}

	sampleRate := int(f.SampleRate())
	enc := wav.NewEncoder(w, sampleRate, 16, f.Channels(), 1)
	if err := enc.Write(&audio.IntBuffer{
		Data:           intSamples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: f.Channels()},
		SourceBitDepth: 16,
	}); err != nil {
		return errors.New(err).
			Component("capture").
			Category(errors.CategoryGeneric).
			Context("operation", "wav_encode").
			Build()
	}
	return enc.Close()
}

// SaveWAV writes the samples to a WAV file, creating parent directories as
// needed.
func SaveWAV(path string, f format.StreamFormat, samples []int16) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("capture").
			Category(errors.CategoryResource).
			Context("path", path).
			Build()
	}

	out, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("capture").
			Category(errors.CategoryResource).
			Context("path", path).
			Build()
	}
	defer out.Close()

	return WriteWAV(out, f, samples)
}
