package hostapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErrNilOnSuccess(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NoErr.Err())
}

func TestStatusErrKnownCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		domain Domain
	}{
		{StatusParam, DomainAudio},
		{StatusMemFull, DomainAudio},
		{StatusCodecIllegalOperation, DomainCodec},
		{StatusCodecNotEnoughBuffer, DomainCodec},
		{StatusUnsupportedDataFormat, DomainFormat},
		{StatusUnitUninitialized, DomainUnit},
		{StatusUnitFormatNotSupported, DomainUnit},
		{StatusUnitCannotDoInContext, DomainUnit},
	}

	for _, tt := range tests {
		err := tt.status.Err()
		require.Error(t, err)

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, tt.status, se.Status)
		assert.Equal(t, tt.domain, se.Domain)
		assert.True(t, IsStatus(err, tt.status))
	}
}

func TestStatusErrUnknownCode(t *testing.T) {
	t.Parallel()

	err := Status(123456789).Err()
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, DomainUnknown, se.Domain)
	assert.Equal(t, "unknown", se.Name)
	assert.Contains(t, err.Error(), "123456789")
}

func TestIsStatusDistinguishesCodes(t *testing.T) {
	t.Parallel()

	err := StatusUnitInitialized.Err()
	assert.True(t, IsStatus(err, StatusUnitInitialized))
	assert.False(t, IsStatus(err, StatusUnitUninitialized))
}
