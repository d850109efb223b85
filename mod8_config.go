// mod8_config.go - compile/construction-time tuning for the MOD player core

package main

// Options gathers every construction-time tunable the spec calls out as
// configuration rather than behavior: mixing frequency, downsampling,
// attenuation and a couple of compatibility toggles for picky old modules.
type Options struct {
	// MixingFreq is the audio-sample clock the host drives Tick() at.
	MixingFreq uint32
	// DownsamplingFactorLog2 is 0 (no downsampling) or 1 (mix every other
	// channel pair per Tick, halving the effective per-channel rate).
	DownsamplingFactorLog2 uint8
	// DownsamplingWithLerp linearly interpolates between mixed samples when
	// downsampling is active, trading a little CPU for less aliasing.
	DownsamplingWithLerp bool
	// VolumeAttenuationLog2 right-shifts every sample's applied volume;
	// useful for headroom on hosts that sum many channels elsewhere.
	VolumeAttenuationLog2 uint8
	// AmigaPeriods clamps periods to the genuine Paula range [113,856]
	// instead of the wider range tolerated by some trackers.
	AmigaPeriods bool
	// StopOnF00 treats effect F00 as an explicit song-stop request, a
	// behavior some Noisetracker-era songs rely on and others don't.
	StopOnF00 bool
}

// DefaultOptions mirrors mod8::config's defaults: 31250 Hz mixing rate (the
// classic 16MHz/256/2 AVR timer derivation), no downsampling, no attenuation.
func DefaultOptions() Options {
	return Options{
		MixingFreq:             samplingFreqDefault,
		DownsamplingFactorLog2: 0,
		DownsamplingWithLerp:   true,
		VolumeAttenuationLog2:  0,
		AmigaPeriods:           false,
		StopOnF00:              false,
	}
}

const (
	// samplingFreqDefault is 16,000,000 / 256 / 2 Hz, the default mixing
	// frequency derived from a typical AVR timer/prescaler setup.
	samplingFreqDefault = 16000000 / 256 / 2

	// amigaPaulaClockFreq is the PAL Paula chip clock in Hz.
	amigaPaulaClockFreq = 3546894

	// amigaVblankIntFreq is the PAL vertical-blank rate in Hz, the
	// classic tracker tick clock at the default speed of 6.
	amigaVblankIntFreq = 50
)

// downsamplingFactor returns 1<<Log2.
func (o Options) downsamplingFactor() uint32 {
	return 1 << o.DownsamplingFactorLog2
}

// samplesPerVblank returns how many audio samples make up one tracker tick
// at the classic PAL VBLANK rate, for the initial Timer period.
func (o Options) samplesPerVblank() uint16 {
	return uint16(o.MixingFreq / o.downsamplingFactor() / amigaVblankIntFreq)
}
