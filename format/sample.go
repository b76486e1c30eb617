package format

import "reflect"

// Sample is the constraint for sample element types the library can move
// through host buffers. All of them are fixed-size and default to zero.
type Sample interface {
	~int16 | ~int32 | ~float32 | ~float64
}

// SampleFormat tags the element type of a PCM stream.
type SampleFormat uint8

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatI16
	SampleFormatI32
	SampleFormatF32
	SampleFormatF64
)

// ByteSize returns the size in bytes of one sample.
func (f SampleFormat) ByteSize() int {
	switch f {
	case SampleFormatI16:
		return 2
	case SampleFormatI32, SampleFormatF32:
		return 4
	case SampleFormatF64:
		return 8
	default:
		return 0
	}
}

// BitSize returns the size in bits of one sample.
func (f SampleFormat) BitSize() uint32 {
	return uint32(f.ByteSize() * 8)
}

// IsFloat reports whether samples are floating point.
func (f SampleFormat) IsFloat() bool {
	return f == SampleFormatF32 || f == SampleFormatF64
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatI16:
		return "i16"
	case SampleFormatI32:
		return "i32"
	case SampleFormatF32:
		return "f32"
	case SampleFormatF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Of returns the SampleFormat tag for a sample element type. The reflect
// kind covers named types with an underlying type from the constraint.
func Of[S Sample]() SampleFormat {
	var zero S
	switch reflect.TypeOf(zero).Kind() {
	case reflect.Int16:
		return SampleFormatI16
	case reflect.Int32:
		return SampleFormatI32
	case reflect.Float32:
		return SampleFormatF32
	case reflect.Float64:
		return SampleFormatF64
	default:
		return SampleFormatUnknown
	}
}

// fromFlagsAndBits recovers a SampleFormat from host format flags and the
// bits-per-channel field. Unsupported combinations return false.
func fromFlagsAndBits(flags LinearPCMFlags, bits uint32) (SampleFormat, bool) {
	switch {
	case flags.Contains(IsFloat) && bits == 32:
		return SampleFormatF32, true
	case flags.Contains(IsFloat) && bits == 64:
		return SampleFormatF64, true
	case flags.Contains(IsSignedInteger) && bits == 16:
		return SampleFormatI16, true
	case flags.Contains(IsSignedInteger) && bits == 32:
		return SampleFormatI32, true
	default:
		return SampleFormatUnknown, false
	}
}
