// ABOUTME: Result codes shared by the device core and every backend
// ABOUTME: Codes implement error so fmt.Errorf("%w") and errors.Is compose
package pcmio

import "fmt"

// Code is a numeric result code. The zero value is Success; failures are
// negative, with generic codes above -1024 and one block per backend below
// that.
type Code int

// Generic result codes.
const (
	Success                       Code = 0
	ErrGeneric                    Code = -1
	ErrInvalidArgs                Code = -2
	ErrOutOfMemory                Code = -3
	ErrFormatNotSupported         Code = -4
	ErrNoBackend                  Code = -5
	ErrNoDevice                   Code = -6
	ErrAPINotFound                Code = -7
	ErrDeviceBusy                 Code = -8
	ErrDeviceNotInitialized       Code = -9
	ErrDeviceAlreadyStarted       Code = -10
	ErrDeviceAlreadyStarting      Code = -11
	ErrDeviceAlreadyStopped       Code = -12
	ErrDeviceAlreadyStopping      Code = -13
	ErrFailedToMapDeviceBuffer    Code = -14
	ErrFailedToInitBackend        Code = -15
	ErrFailedToReadDataFromClient Code = -16
	ErrFailedToStartBackendDevice Code = -17
	ErrFailedToStopBackendDevice  Code = -18
	ErrFailedToCreateMutex        Code = -19
	ErrFailedToCreateEvent        Code = -20
	ErrFailedToCreateThread       Code = -21
	ErrInvalidDeviceConfig        Code = -22
)

// ALSA backend codes, block -1024.
const (
	ErrALSAOpenFailed    Code = -1024
	ErrALSARefineFailed  Code = -1025
	ErrALSAParamsFailed  Code = -1026
	ErrALSAPrepareFailed Code = -1027
	ErrALSAXRunRecovery  Code = -1028
)

// oto backend codes, block -2048.
const (
	ErrOtoContextFailed Code = -2048
	ErrOtoPlaybackOnly  Code = -2049
)

// PortAudio backend codes, block -3072.
const (
	ErrPortAudioInitFailed   Code = -3072
	ErrPortAudioStreamFailed Code = -3073
	ErrPortAudioNotCompiled  Code = -3074
)

var codeText = map[Code]string{
	Success:                       "success",
	ErrGeneric:                    "generic error",
	ErrInvalidArgs:                "invalid arguments",
	ErrOutOfMemory:                "out of memory",
	ErrFormatNotSupported:         "format not supported",
	ErrNoBackend:                  "no backend available",
	ErrNoDevice:                   "no device available",
	ErrAPINotFound:                "API not found",
	ErrDeviceBusy:                 "device busy",
	ErrDeviceNotInitialized:       "device not initialized",
	ErrDeviceAlreadyStarted:       "device already started",
	ErrDeviceAlreadyStarting:      "device already starting",
	ErrDeviceAlreadyStopped:       "device already stopped",
	ErrDeviceAlreadyStopping:      "device already stopping",
	ErrFailedToMapDeviceBuffer:    "failed to map device buffer",
	ErrFailedToInitBackend:        "failed to initialize backend",
	ErrFailedToReadDataFromClient: "failed to read data from client",
	ErrFailedToStartBackendDevice: "failed to start backend device",
	ErrFailedToStopBackendDevice:  "failed to stop backend device",
	ErrFailedToCreateMutex:        "failed to create mutex",
	ErrFailedToCreateEvent:        "failed to create event",
	ErrFailedToCreateThread:       "failed to create thread",
	ErrInvalidDeviceConfig:        "invalid device config",

	ErrALSAOpenFailed:    "alsa: failed to open pcm device",
	ErrALSARefineFailed:  "alsa: hardware parameter refine failed",
	ErrALSAParamsFailed:  "alsa: failed to install parameters",
	ErrALSAPrepareFailed: "alsa: failed to prepare stream",
	ErrALSAXRunRecovery:  "alsa: xrun recovery failed",

	ErrOtoContextFailed: "oto: failed to create context",
	ErrOtoPlaybackOnly:  "oto: backend is playback only",

	ErrPortAudioInitFailed:   "portaudio: initialization failed",
	ErrPortAudioStreamFailed: "portaudio: stream error",
	ErrPortAudioNotCompiled:  "portaudio: backend not compiled in",
}

func (c Code) Error() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", int(c))
}
