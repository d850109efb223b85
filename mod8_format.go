// mod8_format.go - Protracker MOD file layout and validation constants

package main

const (
	numOrders    = 128
	numChannels  = 4
	numFinetunes = 16
	numRows      = 64
	numSamples   = 31

	maxVolume       = 64
	maxFinetune     = 15
	maxTicksPerRow  = 31
	initialBPM      = 125
	initialSpeed    = 6
	arpeggioPeriod  = 3

	sampleHeaderSize = 30
	songHeaderSize   = 20 + numSamples*sampleHeaderSize + 1 + 1 + numOrders + 4
	patternSize      = numRows * numChannels * 4

	formatTagOffset = 20 + numSamples*sampleHeaderSize + 1 + 1 + numOrders
)

// periodRangeDefault is the range tolerated for non-Amiga-strict playback;
// periodRangeAmiga is genuine Paula hardware's range.
const (
	minPeriodDefault = 28
	maxPeriodDefault = 3424
	minPeriodAmiga   = 113
	maxPeriodAmiga   = 856
)

func (o Options) minPeriod() uint16 {
	if o.AmigaPeriods {
		return minPeriodAmiga
	}
	return minPeriodDefault * uint16(o.downsamplingFactor())
}

func (o Options) maxPeriod() uint16 {
	if o.AmigaPeriods {
		return maxPeriodAmiga
	}
	return maxPeriodDefault
}

// supportedTags lists the 4-channel format tags this player accepts.
// Anything else (8/6/10/12/14/16/24/32-channel extensions, ProTracker's own
// "M!K!" >64-pattern variant, etc.) is out of scope per the spec.
var supportedTags = [][4]byte{
	{'M', '.', 'K', '.'},
	{'4', 'C', 'H', 'N'},
	{'F', 'L', 'T', '4'},
}

func isSupportedTag(tag [4]byte) bool {
	for _, t := range supportedTags {
		if t == tag {
			return true
		}
	}
	return false
}
