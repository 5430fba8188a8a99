// ABOUTME: Package documentation for the ALSA backend
// ABOUTME: Registers itself under the "alsa" kind on import

// Package alsa drives Linux PCM devices through the kernel ioctl interface,
// without linking against alsa-lib. Importing it registers the "alsa"
// backend:
//
//	import _ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/alsa"
//
// Devices are addressed with hw:CARD,DEV identifiers as printed by the
// backend's enumeration. Hardware parameters are negotiated as close to the
// request as the device allows; whatever the hardware insists on is reported
// back and absorbed by the conversion pipeline.
//
// On non-Linux platforms the registered factory fails, letting context
// setup fall through to the next backend in priority order.
package alsa
