// Package hostapi defines the binary and threading contract of the host audio
// subsystem: the raw struct layouts shared with the host, the status codes its
// operations return, and the interfaces a host backend must implement.
//
// Callbacks registered through a host are invoked on threads owned by the
// host. Code running inside them must not block and must not call back into
// operations that stop or dispose the same object.
package hostapi

import "unsafe"

// FormatIDLinearPCM is the format tag for linear PCM sample data ('lpcm').
const FormatIDLinearPCM uint32 = 0x6C70636D

// Linear PCM format flags carried in StreamDescription.FormatFlags.
const (
	LinearPCMFlagIsFloat          uint32 = 1 << 0
	LinearPCMFlagIsBigEndian      uint32 = 1 << 1
	LinearPCMFlagIsSignedInteger  uint32 = 1 << 2
	LinearPCMFlagIsPacked         uint32 = 1 << 3
	LinearPCMFlagIsNonInterleaved uint32 = 1 << 5
)

// StreamDescription is the host's fixed-layout description of a PCM stream.
// It is forwarded verbatim into host property calls and read back unchanged.
type StreamDescription struct {
	SampleRate       float64
	FormatID         uint32
	FormatFlags      uint32
	BytesPerPacket   uint32
	FramesPerPacket  uint32
	BytesPerFrame    uint32
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
	Reserved         uint32
}

// TimeStamp flag bits reporting which fields of a TimeStamp are valid.
const (
	TimeStampSampleTimeValid uint32 = 1 << 0
	TimeStampHostTimeValid   uint32 = 1 << 1
	TimeStampRateScalarValid uint32 = 1 << 2
)

// TimeStamp carries the host's notion of when a callback's audio occurs.
type TimeStamp struct {
	SampleTime float64
	HostTime   uint64
	RateScalar float64
	Flags      uint32
	_          uint32
}

// QueueBuffer is the host-mandated layout of one streaming queue buffer.
// AudioData points at the sample storage; AudioDataByteSize is the number of
// valid bytes, never more than AudioDataBytesCapacity. UserData is an opaque
// slot the host preserves across enqueue/completion.
type QueueBuffer struct {
	AudioDataBytesCapacity uint32
	_                      uint32
	AudioData              unsafe.Pointer
	AudioDataByteSize      uint32
	_                      uint32
	UserData               uintptr
}

// AudioBuffer is one descriptor inside an AudioBufferList.
type AudioBuffer struct {
	NumberChannels uint32
	DataByteSize   uint32
	Data           unsafe.Pointer
}

// AudioBufferList is the host's variable-length buffer list header: a count
// followed by NumberBuffers descriptors. The struct declares space for one
// descriptor; lists with more carry extra trailing bytes beyond the declared
// size, so the header must always be addressed through a pointer.
type AudioBufferList struct {
	NumberBuffers uint32
	Buffers       [1]AudioBuffer
}

// RenderActionFlags describe the phase of a render callback invocation.
type RenderActionFlags uint32

const (
	RenderActionPreRender            RenderActionFlags = 1 << 2
	RenderActionPostRender           RenderActionFlags = 1 << 3
	RenderActionOutputIsSilence      RenderActionFlags = 1 << 4
	RenderActionOfflinePreflight     RenderActionFlags = 1 << 5
	RenderActionOfflineRender        RenderActionFlags = 1 << 6
	RenderActionOfflineComplete      RenderActionFlags = 1 << 7
	RenderActionPostRenderError      RenderActionFlags = 1 << 8
	RenderActionDoNotCheckRenderArgs RenderActionFlags = 1 << 9
)

// Scope addresses a side of a unit when getting or setting properties.
// The core treats scopes as opaque enumerants.
type Scope uint32

const (
	ScopeGlobal Scope = 0
	ScopeInput  Scope = 1
	ScopeOutput Scope = 2
)

// Element addresses a bus within a scope.
type Element uint32

const (
	ElementOutput Element = 0
	ElementInput  Element = 1
)

// ComponentDescription identifies a kind of processing component in the
// host registry. Zero fields act as wildcards during discovery.
type ComponentDescription struct {
	Type         uint32
	SubType      uint32
	Manufacturer uint32
	Flags        uint32
	FlagsMask    uint32
}

// Component is an opaque handle to one entry in the host component registry.
type Component uintptr

// Version is a component version unpacked from the host's packed form.
type Version struct {
	Major  uint8
	Minor  uint8
	Bugfix uint8
	Stage  uint8
}
