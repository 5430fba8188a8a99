// ABOUTME: Speaker channel identifiers and channel map helpers
// ABOUTME: Provides default layouts by channel count and map validation
package audio

import "fmt"

// Channel identifies a speaker position within an interleaved frame.
type Channel uint8

const (
	// ChannelNone marks an unmapped slot. A map whose first entry is
	// ChannelNone disables channel routing for the stream.
	ChannelNone Channel = iota
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftCenter
	ChannelFrontRightCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
	ChannelTopCenter
	ChannelTopFrontLeft
	ChannelTopFrontCenter
	ChannelTopFrontRight
	ChannelTopBackLeft
	ChannelTopBackCenter
	ChannelTopBackRight
)

var channelNames = [...]string{
	ChannelNone:             "none",
	ChannelFrontLeft:        "FL",
	ChannelFrontRight:       "FR",
	ChannelFrontCenter:      "FC",
	ChannelLFE:              "LFE",
	ChannelBackLeft:         "BL",
	ChannelBackRight:        "BR",
	ChannelFrontLeftCenter:  "FLC",
	ChannelFrontRightCenter: "FRC",
	ChannelBackCenter:       "BC",
	ChannelSideLeft:         "SL",
	ChannelSideRight:        "SR",
	ChannelTopCenter:        "TC",
	ChannelTopFrontLeft:     "TFL",
	ChannelTopFrontCenter:   "TFC",
	ChannelTopFrontRight:    "TFR",
	ChannelTopBackLeft:      "TBL",
	ChannelTopBackCenter:    "TBC",
	ChannelTopBackRight:     "TBR",
}

// String returns the short speaker name ("FL", "LFE", ...).
func (c Channel) String() string {
	if int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", uint8(c))
}

// ChannelMap assigns a speaker position to each interleaved frame slot.
// A nil or empty map means "use the stream's native layout".
type ChannelMap []Channel

// Validate checks that no speaker position appears twice. ChannelNone
// entries are exempt since they mark slots excluded from routing.
func (m ChannelMap) Validate() error {
	var seen [len(channelNames)]bool
	for i, ch := range m {
		if ch == ChannelNone {
			continue
		}
		if int(ch) >= len(channelNames) {
			return fmt.Errorf("slot %d: unknown channel identifier %d", i, uint8(ch))
		}
		if seen[ch] {
			return fmt.Errorf("channel %v appears twice", ch)
		}
		seen[ch] = true
	}
	return nil
}

// Contains reports whether ch appears anywhere in the map.
func (m ChannelMap) Contains(ch Channel) bool {
	for _, c := range m {
		if c == ch {
			return true
		}
	}
	return false
}

// Equal reports whether both maps have the same length and entries.
func (m ChannelMap) Equal(o ChannelMap) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the map.
func (m ChannelMap) Clone() ChannelMap {
	if m == nil {
		return nil
	}
	out := make(ChannelMap, len(m))
	copy(out, m)
	return out
}

// DefaultChannelMap returns the conventional speaker layout for common
// channel counts, or nil when no convention exists for the count. Streams
// with a nil map skip channel routing entirely.
func DefaultChannelMap(channels int) ChannelMap {
	switch channels {
	case 1:
		return ChannelMap{ChannelFrontCenter}
	case 2:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight}
	case 3:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight, ChannelLFE}
	case 4:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight}
	case 5:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelLFE}
	case 6:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackLeft, ChannelBackRight}
	case 8:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackLeft, ChannelBackRight, ChannelSideLeft, ChannelSideRight}
	}
	return nil
}
