package hostapi

import (
	"errors"
	"fmt"
)

// Status is the integer result code returned by every host operation.
// Zero means success; any other value identifies a failure condition in
// one of the host's error domains.
type Status int32

// NoErr is the success status.
const NoErr Status = 0

// Generic audio statuses.
const (
	StatusUnimplemented    Status = -4
	StatusTooManyFilesOpen Status = -42
	StatusFileNotFound     Status = -43
	StatusParam            Status = -50
	StatusFilePermission   Status = -54
	StatusMemFull          Status = -108
	StatusBadFilePath      Status = 561017960

	// '!run': the device or its IO proc is not running.
	StatusHardwareNotRunning Status = 561149294
)

// Codec statuses.
const (
	StatusCodecUnspecified       Status = 2003329396
	StatusCodecUnknownProperty   Status = 2003332927
	StatusCodecBadPropertySize   Status = 561211770
	StatusCodecIllegalOperation  Status = 1852797029
	StatusCodecUnsupportedFormat Status = 560226676
	StatusCodecState             Status = 561214580
	StatusCodecNotEnoughBuffer   Status = 560100710
)

// Format statuses.
const (
	StatusUnsupportedDataFormat Status = 1718449215
)

// Unit statuses.
const (
	StatusUnitInvalidProperty         Status = -10879
	StatusUnitInvalidParameter        Status = -10878
	StatusUnitInvalidElement          Status = -10877
	StatusUnitNoConnection            Status = -10876
	StatusUnitFailedInitialization    Status = -10875
	StatusUnitTooManyFrames           Status = -10874
	StatusUnitInvalidFile             Status = -10871
	StatusUnitFormatNotSupported      Status = -10868
	StatusUnitUninitialized           Status = -10867
	StatusUnitInvalidScope            Status = -10866
	StatusUnitPropertyNotWritable     Status = -10865
	StatusUnitCannotDoInContext       Status = -10863
	StatusUnitInvalidPropertyValue    Status = -10851
	StatusUnitPropertyNotInUse        Status = -10850
	StatusUnitInitialized             Status = -10849
	StatusUnitInvalidOfflineRender    Status = -10848
	StatusUnitUnauthorized            Status = -10847
)

// Domain identifies which host error family a status belongs to.
type Domain string

const (
	DomainAudio   Domain = "audio"
	DomainCodec   Domain = "audio-codec"
	DomainFormat  Domain = "audio-format"
	DomainUnit    Domain = "audio-unit"
	DomainUnknown Domain = "unknown"
)

// StatusError is the typed error produced from a nonzero host status.
type StatusError struct {
	Status Status
	Domain Domain
	Name   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: %s (%d)", e.Domain, e.Name, e.Status)
}

// Is matches StatusErrors with the same status code.
func (e *StatusError) Is(target error) bool {
	var other *StatusError
	if errors.As(target, &other) {
		return e.Status == other.Status
	}
	return false
}

type statusEntry struct {
	domain Domain
	name   string
}

var statusTable = map[Status]statusEntry{
	StatusUnimplemented:    {DomainAudio, "unimplemented"},
	StatusTooManyFilesOpen: {DomainAudio, "too many open files"},
	StatusFileNotFound:     {DomainAudio, "file not found"},
	StatusParam:            {DomainAudio, "parameter error"},
	StatusFilePermission:   {DomainAudio, "file permission problem"},
	StatusMemFull:          {DomainAudio, "memory full"},
	StatusBadFilePath:      {DomainAudio, "bad file path"},

	StatusHardwareNotRunning: {DomainAudio, "hardware not running"},

	StatusCodecUnspecified:       {DomainCodec, "unspecified"},
	StatusCodecUnknownProperty:   {DomainCodec, "unknown property"},
	StatusCodecBadPropertySize:   {DomainCodec, "bad property size"},
	StatusCodecIllegalOperation:  {DomainCodec, "illegal operation"},
	StatusCodecUnsupportedFormat: {DomainCodec, "unsupported format"},
	StatusCodecState:             {DomainCodec, "state error"},
	StatusCodecNotEnoughBuffer:   {DomainCodec, "not enough buffer space"},

	StatusUnsupportedDataFormat: {DomainFormat, "unsupported data format"},

	StatusUnitInvalidProperty:      {DomainUnit, "invalid property"},
	StatusUnitInvalidParameter:     {DomainUnit, "invalid parameter"},
	StatusUnitInvalidElement:       {DomainUnit, "invalid element"},
	StatusUnitNoConnection:         {DomainUnit, "no connection"},
	StatusUnitFailedInitialization: {DomainUnit, "failed initialization"},
	StatusUnitTooManyFrames:        {DomainUnit, "too many frames to process"},
	StatusUnitInvalidFile:          {DomainUnit, "invalid file"},
	StatusUnitFormatNotSupported:   {DomainUnit, "format not supported"},
	StatusUnitUninitialized:        {DomainUnit, "uninitialized"},
	StatusUnitInvalidScope:         {DomainUnit, "invalid scope"},
	StatusUnitPropertyNotWritable:  {DomainUnit, "property not writable"},
	StatusUnitCannotDoInContext:    {DomainUnit, "cannot do in current context"},
	StatusUnitInvalidPropertyValue: {DomainUnit, "invalid property value"},
	StatusUnitPropertyNotInUse:     {DomainUnit, "property not in use"},
	StatusUnitInitialized:          {DomainUnit, "initialized"},
	StatusUnitInvalidOfflineRender: {DomainUnit, "invalid offline render"},
	StatusUnitUnauthorized:         {DomainUnit, "unauthorized"},
}

// Err converts the status into a typed error. Success returns nil.
// Statuses missing from the lookup tables still produce a typed error in
// DomainUnknown so no host failure is ever swallowed.
func (s Status) Err() error {
	if s == NoErr {
		return nil
	}
	if entry, ok := statusTable[s]; ok {
		return &StatusError{Status: s, Domain: entry.domain, Name: entry.name}
	}
	return &StatusError{Status: s, Domain: DomainUnknown, Name: "unknown"}
}

// IsStatus reports whether err carries the given host status code.
func IsStatus(err error, s Status) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == s
}
