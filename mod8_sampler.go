// mod8_sampler.go - per-voice pitched PCM8 playback with loop wraparound

package main

import "sync/atomic"

// sample is a runtime-resolved sample reference: byte offsets into the
// caller-owned song buffer, never a copy. A sample whose length is too
// short to be audible (begin == end) is the canonical "silent" sample.
type sample struct {
	begin, end         int
	loopBegin, loopEnd int
	finetune           uint8
	volume             int8
}

// emptySample renders as silence: begin == end, so retrig() leaves the
// voice inactive after applying only its volume.
var emptySample = sample{}

// sampler advances one playback voice by one audio sample at a time. It is
// called from two execution contexts: fetch_sample() runs on the interrupt
// (audio) clock, everything else runs in the foreground. The active/sampling
// pair is the handshake that lets the foreground's reset() safely observe
// that no interrupt-context write is in flight, replacing the reference
// implementation's ad-hoc volatile busy-wait with explicit atomics per the
// memory-ordering note in the design docs.
type sampler struct {
	active   atomic.Bool
	sampling atomic.Bool

	finetune uint8
	volume   int8

	cachedPeriod   uint16
	cachedFinetune uint8

	loopless bool

	songData   []byte
	sampleBase int
	end        int64 // fixed point X.16, byte offset into songData
	loopBegin  int64
	loopEnd    int64

	phase          int64 // fixed point X.16
	phaseIncrement int64 // fixed point 16.16

	outSample int16 // in [-8192, 8128]

	opts Options
}

func newSampler(songData []byte, opts Options) *sampler {
	return &sampler{songData: songData, opts: opts}
}

// init zeroes the smallest possible subset of state and marks the voice
// inactive. Must run once before first use.
func (s *sampler) init() {
	s.active.Store(false)
	s.sampling.Store(false)
	s.volume = 0
	s.cachedPeriod = 0
	s.cachedFinetune = 0
}

// reset waits out any fetch_sample() in flight, then re-initializes. Safe
// to call from the foreground at any time.
func (s *sampler) reset() {
	if s.active.Load() {
		s.active.Store(false)
		for s.sampling.Load() {
		}
	}
	s.init()
}

// retrig atomically re-arms playback from the start of samp (or from an
// offset into it), applying the short-loop policy and sample-offset
// saturation described in the design notes.
func (s *sampler) retrig(samp *sample, period uint16, offsetUnits uint8, volume int8) {
	s.reset()
	s.setVolume(volume)

	if samp == nil || samp.begin == samp.end {
		return
	}

	s.finetune = samp.finetune
	s.internalSetPeriod(period)

	s.phase = 0
	base := samp.begin
	s.end = int64(samp.end - base)
	s.loopBegin = int64(samp.loopBegin - base)
	s.loopEnd = int64(samp.loopEnd - base)

	if s.loopEnd-s.loopBegin < int64(minLoopLength(speedTable, s.opts.minPeriod())) {
		s.loopless = true
		s.loopEnd = s.loopBegin + 1
	} else {
		s.loopless = false
	}

	if offsetUnits != 0 {
		byteOffset := int64(offsetUnits) * 256
		rawPhase := byteOffset
		if rawPhase > s.end {
			rawPhase = s.end
		}
		s.phase = rawPhase
	}

	// Convert byte offsets to fixed-point X.16 phase.
	s.phase <<= 16
	s.end <<= 16
	s.loopBegin <<= 16
	s.loopEnd <<= 16

	s.sampleBase = base
	s.active.Store(true)
}

// setVolume stores v right-shifted by the configured attenuation.
func (s *sampler) setVolume(v int8) {
	s.volume = v >> s.opts.VolumeAttenuationLog2
}

// setPeriod clamps to the configured period range and, if active, recomputes
// the phase increment. A no-op on an inactive voice (nothing to retune).
func (s *sampler) setPeriod(period uint16) {
	if s.active.Load() {
		s.internalSetPeriod(period)
	}
}

func (s *sampler) internalSetPeriod(period uint16) {
	period = clampU16(period, s.opts.minPeriod(), s.opts.maxPeriod())

	if period == s.cachedPeriod && s.finetune == s.cachedFinetune {
		return
	}
	s.cachedPeriod = period
	s.cachedFinetune = s.finetune

	speedConstant := speedTable[s.finetune] // fixed-point 18.14
	speed := uint32(uint64(speedConstant) / uint64(period)) // -> 2.14
	s.phaseIncrement = int64(speed) << 2                     // -> 16.16
}

// fetchSample is the time-critical path: called once per audio sample from
// the interrupt clock. No allocation, no branches beyond the loop-wrap
// check, bounded constant cost.
func (s *sampler) fetchSample() {
	if !s.active.Load() {
		return
	}

	s.sampling.Store(true)

	idx := s.sampleBase + int(s.phase>>16)
	var raw uint8
	if idx >= 0 && idx < len(s.songData) {
		raw = s.songData[idx]
	}
	pcm := u8ToS8(raw)
	s.outSample = int16(pcm) * int16(s.volume)

	s.phase += s.phaseIncrement

	if s.phase >= s.end {
		if !s.loopless {
			s.phase -= s.end - s.loopBegin
		} else {
			s.phase = s.loopBegin
		}
		s.end = s.loopEnd
	}

	s.sampling.Store(false)
}

// getSample returns the last value fetchSample computed, in [-8192, 8128].
func (s *sampler) getSample() int16 {
	return s.outSample
}
