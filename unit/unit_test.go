package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/hostapi/hosttest"
)

const (
	testTypeOutput   = 0x61756F75 // 'auou'
	testSubTypeHAL   = 0x6168616C // 'ahal'
	testManufacturer = 0x63617564 // 'caud'
)

func newTestHost(t *testing.T) (*hosttest.Host, hostapi.Component) {
	t.Helper()

	h := hosttest.New()
	c := h.RegisterComponent(hostapi.ComponentDescription{
		Type:         testTypeOutput,
		SubType:      testSubTypeHAL,
		Manufacturer: testManufacturer,
	}, "Test Output", hostapi.Version{Major: 1, Minor: 2})
	return h, c
}

func newTestUnit(t *testing.T) (*hosttest.Host, *Unit) {
	t.Helper()

	h, c := newTestHost(t)
	u, err := New(h, c, Options{})
	require.NoError(t, err)
	return h, u
}

func TestLifecycleOrdering(t *testing.T) {
	h, u := newTestUnit(t)
	defer u.Close()

	require.NoError(t, u.Start(), "start must initialize first")
	counts := h.UnitCounts(u.ref)
	assert.Equal(t, 1, counts.Initialize)
	assert.Equal(t, 1, counts.Start)

	require.NoError(t, u.Start(), "second start is a no-op")
	assert.Equal(t, 1, h.UnitCounts(u.ref).Start)

	require.NoError(t, u.Uninitialize(), "uninitialize must stop first")
	counts = h.UnitCounts(u.ref)
	assert.Equal(t, 1, counts.Stop)
	assert.Equal(t, 1, counts.Uninitialize)

	require.NoError(t, u.Stop(), "stop when stopped is a no-op")
	assert.Equal(t, 1, h.UnitCounts(u.ref).Stop)
}

func TestInitializeIdempotent(t *testing.T) {
	h, u := newTestUnit(t)
	defer u.Close()

	require.NoError(t, u.Initialize())
	require.NoError(t, u.Initialize())
	assert.Equal(t, 1, h.UnitCounts(u.ref).Initialize)
}

func TestInitializeFailureLeavesStateUnchanged(t *testing.T) {
	h, u := newTestUnit(t)
	defer u.Close()

	h.FailWith(hosttest.FailInitializeUnit, hostapi.StatusUnitFormatNotSupported)
	err := u.Initialize()
	require.Error(t, err)
	assert.True(t, hostapi.IsStatus(err, hostapi.StatusUnitFormatNotSupported))
	h.ClearFailures()

	require.NoError(t, u.Initialize(), "failed initialize must be retryable")
	assert.Equal(t, 1, h.UnitCounts(u.ref).Initialize)
}

func TestStartWithoutInitializeFailsAtHost(t *testing.T) {
	h, c := newTestHost(t)

	ref, status := h.NewUnit(c)
	require.Equal(t, hostapi.NoErr, status)
	assert.Equal(t, hostapi.StatusUnitUninitialized, h.StartUnit(ref))
}

func TestCloseDisposesExactlyOnce(t *testing.T) {
	h, u := newTestUnit(t)

	require.NoError(t, u.Start())
	require.NoError(t, u.Close())
	require.NoError(t, u.Close())

	counts := h.UnitCounts(u.ref)
	assert.Equal(t, 1, counts.Dispose)
	assert.Equal(t, 1, counts.Stop)
	assert.Equal(t, 1, counts.Uninitialize)

	require.Error(t, u.Initialize())
	require.Error(t, u.Start())
}

func TestStreamFormatRoundTrip(t *testing.T) {
	_, u := newTestUnit(t)
	defer u.Close()

	want := format.New(44100, format.SampleFormatI16, 0, 2)
	require.NoError(t, u.SetStreamFormat(hostapi.ScopeInput, hostapi.ElementOutput, want))

	got, err := u.StreamFormat(hostapi.ScopeInput, hostapi.ElementOutput)
	require.NoError(t, err)
	assert.Equal(t, 44100.0, got.SampleRate())
	assert.Equal(t, 2, got.Channels())
	assert.Equal(t, format.SampleFormatI16, got.SampleFormat())
}

func TestPropertiesRejectedWhileStarted(t *testing.T) {
	_, u := newTestUnit(t)
	defer u.Close()

	f := format.New(48000, format.SampleFormatF32, 0, 2)
	require.NoError(t, u.SetStreamFormat(hostapi.ScopeInput, hostapi.ElementOutput, f))
	require.NoError(t, u.Start())

	require.Error(t, u.SetStreamFormat(hostapi.ScopeInput, hostapi.ElementOutput, f))
	_, err := u.StreamFormat(hostapi.ScopeInput, hostapi.ElementOutput)
	require.Error(t, err)
	require.Error(t, SetRenderCallback(u, func(*hostapi.TimeStamp, uint32, uint32, *buffer.List[float32]) error {
		return nil
	}))

	require.NoError(t, u.Stop())
	require.NoError(t, u.SetStreamFormat(hostapi.ScopeInput, hostapi.ElementOutput, f))
}

func TestRenderCallbackDelivery(t *testing.T) {
	h, u := newTestUnit(t)
	defer u.Close()

	f := format.New(48000, format.SampleFormatF32, 0, 2)
	require.NoError(t, u.SetStreamFormat(hostapi.ScopeInput, hostapi.ElementOutput, f))

	var gotFrames uint32
	err := SetRenderCallback(u, func(_ *hostapi.TimeStamp, _ uint32, frames uint32, list *buffer.List[float32]) error {
		gotFrames = frames
		for s := range list.At(0).Samples() {
			list.At(0).Samples()[s] = 0.5
		}
		return nil
	})
	require.NoError(t, err)

	require.Error(t, SetRenderCallback(u, func(*hostapi.TimeStamp, uint32, uint32, *buffer.List[float32]) error {
		return nil
	}), "second registration must be rejected")

	require.NoError(t, u.Start())

	status, invoked := h.DriveRender(u.ref, &hostapi.TimeStamp{SampleTime: 256}, 0, 128)
	require.True(t, invoked)
	assert.Equal(t, hostapi.NoErr, status)
	assert.Equal(t, uint32(128), gotFrames)
}

func TestRenderErrorPropagatesStatus(t *testing.T) {
	h, u := newTestUnit(t)
	defer u.Close()

	err := SetRenderCallback(u, func(*hostapi.TimeStamp, uint32, uint32, *buffer.List[float32]) error {
		return hostapi.StatusUnitCannotDoInContext.Err()
	})
	require.NoError(t, err)
	require.NoError(t, u.Start())

	status, invoked := h.DriveRender(u.ref, &hostapi.TimeStamp{}, 0, 64)
	require.True(t, invoked)
	assert.Equal(t, hostapi.StatusUnitCannotDoInContext, status)
}

func TestDiscovery(t *testing.T) {
	h, c := newTestHost(t)
	h.RegisterComponent(hostapi.ComponentDescription{
		Type:         testTypeOutput,
		SubType:      0x64656662, // different subtype
		Manufacturer: testManufacturer,
	}, "Other Output", hostapi.Version{Major: 2})

	all := List(h, hostapi.ComponentDescription{Type: testTypeOutput})
	require.Len(t, all, 2)

	first, err := First(h, hostapi.ComponentDescription{SubType: testSubTypeHAL})
	require.NoError(t, err)
	assert.Equal(t, c, first.Component)
	assert.Equal(t, "Test Output", first.Name)
	assert.Equal(t, uint8(1), first.Version.Major)

	_, err = First(h, hostapi.ComponentDescription{Type: 0x7A7A7A7A})
	require.Error(t, err)
}
