// Package format describes PCM stream formats as a pure value object the
// core forwards verbatim into host property calls and validates when read
// back from the host.
package format

import (
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
)

// LinearPCMFlags qualify how linear PCM sample data is laid out.
type LinearPCMFlags uint32

const (
	IsFloat          = LinearPCMFlags(hostapi.LinearPCMFlagIsFloat)
	IsBigEndian      = LinearPCMFlags(hostapi.LinearPCMFlagIsBigEndian)
	IsSignedInteger  = LinearPCMFlags(hostapi.LinearPCMFlagIsSignedInteger)
	IsPacked         = LinearPCMFlags(hostapi.LinearPCMFlagIsPacked)
	IsNonInterleaved = LinearPCMFlags(hostapi.LinearPCMFlagIsNonInterleaved)
)

// Contains reports whether all bits of other are set in f.
func (f LinearPCMFlags) Contains(other LinearPCMFlags) bool {
	return f&other == other
}

const framesPerPacket = 1

// StreamFormat is an immutable description of one linear PCM stream.
type StreamFormat struct {
	desc hostapi.StreamDescription
}

// New builds a StreamFormat for linear PCM data. Flags implied by the sample
// format (float vs signed integer) and packing are always set, so a format
// built here round-trips through FromDescription.
func New(sampleRate float64, sampleFormat SampleFormat, flags LinearPCMFlags, channels int) StreamFormat {
	flags |= IsPacked
	if sampleFormat.IsFloat() {
		flags |= IsFloat
	} else {
		flags |= IsSignedInteger
	}

	// Non-interleaved data has one channel's worth of samples per frame in
	// each buffer; interleaved data packs all channels into one frame.
	bytesPerFrame := uint32(sampleFormat.ByteSize())
	if !flags.Contains(IsNonInterleaved) {
		bytesPerFrame *= uint32(channels)
	}

	return StreamFormat{
		desc: hostapi.StreamDescription{
			SampleRate:       sampleRate,
			FormatID:         hostapi.FormatIDLinearPCM,
			FormatFlags:      uint32(flags),
			BytesPerPacket:   bytesPerFrame * framesPerPacket,
			FramesPerPacket:  framesPerPacket,
			BytesPerFrame:    bytesPerFrame,
			ChannelsPerFrame: uint32(channels),
			BitsPerChannel:   sampleFormat.BitSize(),
		},
	}
}

// FromDescription validates a host-provided description and wraps it. Only
// linear PCM with a supported sample element type is accepted.
func FromDescription(desc hostapi.StreamDescription) (StreamFormat, error) {
	if desc.FormatID != hostapi.FormatIDLinearPCM {
		return StreamFormat{}, errors.New(hostapi.StatusUnitFormatNotSupported.Err()).
			Component("format").
			Category(errors.CategoryFormat).
			Context("format_id", desc.FormatID).
			Build()
	}

	if _, ok := fromFlagsAndBits(LinearPCMFlags(desc.FormatFlags), desc.BitsPerChannel); !ok {
		return StreamFormat{}, errors.New(hostapi.StatusUnitFormatNotSupported.Err()).
			Component("format").
			Category(errors.CategoryFormat).
			Context("format_flags", desc.FormatFlags).
			Context("bits_per_channel", desc.BitsPerChannel).
			Build()
	}

	return StreamFormat{desc: desc}, nil
}

// SampleRate returns the stream's sample rate in Hz.
func (f StreamFormat) SampleRate() float64 {
	return f.desc.SampleRate
}

// Channels returns the channels per frame.
func (f StreamFormat) Channels() int {
	return int(f.desc.ChannelsPerFrame)
}

// Flags returns the linear PCM flags.
func (f StreamFormat) Flags() LinearPCMFlags {
	return LinearPCMFlags(f.desc.FormatFlags)
}

// SampleFormat re-derives the sample element tag from flags and bit depth.
func (f StreamFormat) SampleFormat() SampleFormat {
	sf, _ := fromFlagsAndBits(f.Flags(), f.desc.BitsPerChannel)
	return sf
}

// BytesPerFrame returns the frame stride in bytes.
func (f StreamFormat) BytesPerFrame() int {
	return int(f.desc.BytesPerFrame)
}

// Description returns a copy of the underlying host description.
func (f StreamFormat) Description() hostapi.StreamDescription {
	return f.desc
}

// EnsureSampleType verifies that the stream's sample element type is S.
// Queue and render plumbing call this before reinterpreting host memory.
func EnsureSampleType[S Sample](f StreamFormat) error {
	want := Of[S]()
	if got := f.SampleFormat(); got != want {
		return errors.Newf("stream format carries %s samples, need %s", got, want).
			Component("format").
			Category(errors.CategoryFormat).
			Build()
	}
	return nil
}
