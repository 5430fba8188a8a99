// ABOUTME: Card and PCM device discovery via /dev/snd/controlC*
// ABOUTME: Also parses and defaults hw:CARD,DEV device identifiers
//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"unsafe"

	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	"golang.org/x/sys/unix"
)

// maxCards matches the kernel's SNDRV_CARDS upper bound.
const maxCards = 32

// enumerate lists every PCM device supporting the given stream direction.
// Card numbering can be sparse, so missing control nodes are skipped.
func enumerate(stream int) ([]pcmio.DeviceInfo, error) {
	var out []pcmio.DeviceInfo
	for card := 0; card < maxCards; card++ {
		fd, err := unix.Open(fmt.Sprintf("/dev/snd/controlC%d", card), unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		var info ctlCardInfo
		if err := ioctl(fd, ctlIoctlCardInfo, unsafe.Pointer(&info)); err != nil {
			unix.Close(fd)
			continue
		}
		cardName := cString(info.name[:])
		dev := int32(-1)
		for {
			if err := ioctl(fd, ctlIoctlPCMNextDevice, unsafe.Pointer(&dev)); err != nil || dev < 0 {
				break
			}
			var pi pcmInfo
			pi.device = uint32(dev)
			pi.stream = int32(stream)
			if err := ioctl(fd, ctlIoctlPCMInfo, unsafe.Pointer(&pi)); err != nil {
				// Device exists but not in this direction.
				continue
			}
			name := cardName
			if pcmName := cString(pi.name[:]); pcmName != "" {
				name = fmt.Sprintf("%s %s", cardName, pcmName)
			}
			out = append(out, pcmio.DeviceInfo{
				ID:   fmt.Sprintf("hw:%d,%d", card, dev),
				Name: name,
			})
		}
		unix.Close(fd)
	}
	return out, nil
}

// parseDeviceID splits an hw:CARD,DEV identifier. A bare hw:CARD selects
// device 0 on that card.
func parseDeviceID(id string) (card, device int, err error) {
	if n, _ := fmt.Sscanf(id, "hw:%d,%d", &card, &device); n == 2 {
		return card, device, nil
	}
	if n, _ := fmt.Sscanf(id, "hw:%d", &card); n == 1 {
		return card, 0, nil
	}
	return 0, 0, fmt.Errorf("device id %q not in hw:CARD,DEV form: %w", id, pcmio.ErrInvalidArgs)
}

// resolveDeviceID turns the configured identifier into card/device numbers,
// falling back to the first device in the requested direction when none was
// given.
func resolveDeviceID(id string, stream int) (card, device int, err error) {
	if id != "" {
		return parseDeviceID(id)
	}
	devs, err := enumerate(stream)
	if err != nil {
		return 0, 0, err
	}
	if len(devs) == 0 {
		return 0, 0, fmt.Errorf("no pcm devices found: %w", pcmio.ErrNoDevice)
	}
	return parseDeviceID(devs[0].ID)
}
