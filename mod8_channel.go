// mod8_channel.go - per-voice Protracker effect state machine

package main

// action bits resolved once per tick by internalPerformActions.
type action uint8

const (
	actionNone           action = 0
	actionRetrig         action = 1 << 0
	actionLoadSample     action = 1 << 1
	actionUpdateVolume   action = 1 << 2
	actionUpdatePeriod   action = 1 << 3
	actionUseSampleOffset action = 1 << 4
	actionUseArpeggio    action = 1 << 5
)

type arpeggioEffect uint8

const (
	arpeggioEffectNone arpeggioEffect = iota
	arpeggioEffectArpeggio
)

type volumeEffect uint8

const (
	volEffectNone volumeEffect = iota
	volEffectInc
	volEffectDec
	volEffectTremolo
)

type periodEffect uint8

const (
	periodEffectNone periodEffect = iota
	periodEffectInc
	periodEffectDec
	periodEffectPortamento
	periodEffectVibrato
)

type noteEffect uint8

const (
	noteEffectNone noteEffect = iota
	noteEffectCut
	noteEffectDelay
	noteEffectRepeat
)

// rowEffects is the effect selected for the current row, one per family.
// reset() clears the selectors but deliberately leaves the params, since a
// sticky effect reselected next row (e.g. bare "A00" volume slide) still
// needs last row's speed/depth.
type rowEffects struct {
	arpeggioEffect arpeggioEffect
	arpeggioParams [3]uint8

	volumeEffect volumeEffect
	volumeParam  uint8

	periodEffect periodEffect
	periodParam  uint8

	noteEffect noteEffect
	noteParam  uint8
}

func (r *rowEffects) reset() {
	r.arpeggioEffect = arpeggioEffectNone
	r.volumeEffect = volEffectNone
	r.periodEffect = periodEffectNone
	r.noteEffect = noteEffectNone
}

// channelState is the channel's persistent, cross-tick playback state.
type channelState struct {
	sample     *sample
	period     uint16
	volume     int8
	vibratoPos int8 // in [-32,31]
	tremoloPos int8 // in [-32,31]
}

// channelInput holds sticky row parameters: Protracker's "zero param means
// reuse the last one" rule for vibrato/tremolo/portamento/sample-offset.
type channelInput struct {
	sample          *sample
	period          uint16 // portamento target
	portamentoSlide uint8
	vibratoSpeed    uint8
	vibratoDepth    uint8
	tremoloSpeed    uint8
	tremoloDepth    uint8
	sampleOffset    uint8
}

type channelRowState struct {
	tickCounter    uint8
	delayedActions action
}

type channelTickState struct {
	period  uint16
	volume  int8
	actions action
}

// channel is one of the four Protracker voices: an effect evaluator that
// owns a Sampler and drives it once per tracker tick.
type channel struct {
	samp *sampler

	state      channelState
	input      channelInput
	rowEffects rowEffects
	rowState   channelRowState
	tickState  channelTickState

	opts Options
}

func newChannel(songData []byte, opts Options) *channel {
	return &channel{samp: newSampler(songData, opts), opts: opts}
}

func (c *channel) init() {
	c.samp.init()
	c.resetRow()
	c.state = channelState{}
	c.input = channelInput{}
}

func (c *channel) reset() {
	c.samp.reset()
	c.init()
}

func (c *channel) resetRow() {
	c.rowState = channelRowState{}
	c.rowEffects.reset()
	c.tickState.actions = actionNone
}

func (c *channel) sampler() *sampler { return c.samp }

func (c *channel) fetchSample() { c.samp.fetchSample() }

// tick runs the per-tracker-tick evaluation. Called once per tick for every
// channel, after the Player has resolved row transitions for this tick.
func (c *channel) tick() {
	c.tickState.period = c.state.period
	c.tickState.volume = c.state.volume

	if c.rowState.tickCounter != 0 {
		c.internalUpdateVolume()
		c.internalUpdateNote()
		c.internalUpdatePeriod()
	}

	c.internalPerformActions()

	c.rowState.tickCounter++
	c.tickState.actions = actionNone
}

// --- row-level setters, called by the Player while parsing one row ---

func (c *channel) setSample(s *sample) {
	if s != nil {
		c.input.sample = s
		c.tickState.actions |= actionLoadSample
	}
}

func (c *channel) setPeriod(period uint16) {
	if period != 0 {
		c.input.period = period
		c.tickState.actions |= actionRetrig
	}
}

// setPortamentoTarget stores a new glide destination for a 3xx/5xy effect
// without retriggering the voice.
func (c *channel) setPortamentoTarget(period uint16) {
	if period != 0 {
		c.input.period = period
	}
}

func (c *channel) setVolume(v uint8) {
	c.internalLoadSample()
	v = clampU8(v, 0, maxVolume)
	c.state.volume = int8(v)
	c.tickState.actions |= actionUpdateVolume
}

func (c *channel) incVolume(d uint8) {
	c.state.volume = saturatingAddVolume(c.state.volume, d)
	c.tickState.actions |= actionUpdateVolume
}

func (c *channel) decVolume(d uint8) {
	c.state.volume = saturatingSubVolume(c.state.volume, d)
	c.tickState.actions |= actionUpdateVolume
}

// useVolumeInc/useVolumeDec select the per-tick volume-slide effect. Sticky:
// a zero delta leaves the current selector and param untouched. When both
// a row's low and high nibble are non-zero (the 5xy/6xy combined effects
// always call dec then inc), inc wins, since it's applied second.
func (c *channel) useVolumeDec(delta uint8) {
	if delta != 0 {
		c.rowEffects.volumeParam = delta
		c.rowEffects.volumeEffect = volEffectDec
	}
}

func (c *channel) useVolumeInc(delta uint8) {
	if delta != 0 {
		c.rowEffects.volumeParam = delta
		c.rowEffects.volumeEffect = volEffectInc
	}
}

func (c *channel) useVolumeTremolo(speed, depth uint8) {
	if speed != 0 {
		c.input.tremoloSpeed = speed
	}
	if depth != 0 {
		c.input.tremoloDepth = depth
	}
	c.rowEffects.volumeEffect = volEffectTremolo
}

func (c *channel) incPeriod(d uint8) {
	c.state.period = clampU16(c.state.period+uint16(d), c.opts.minPeriod(), c.opts.maxPeriod())
	c.tickState.actions |= actionUpdatePeriod
}

func (c *channel) decPeriod(d uint8) {
	p := int32(c.state.period) - int32(d)
	if p < int32(c.opts.minPeriod()) {
		p = int32(c.opts.minPeriod())
	}
	c.state.period = uint16(p)
	c.tickState.actions |= actionUpdatePeriod
}

// usePeriodInc/usePeriodDec select the per-tick period-slide effect. Unlike
// the volume slide selectors these are NOT sticky: every call overwrites
// the row's selector and param, even when delta is zero.
func (c *channel) usePeriodInc(delta uint8) {
	c.rowEffects.periodParam = delta
	c.rowEffects.periodEffect = periodEffectInc
}

func (c *channel) usePeriodDec(delta uint8) {
	c.rowEffects.periodParam = delta
	c.rowEffects.periodEffect = periodEffectDec
}

// usePeriodPortamento clears any pending retrig: a new note with a 3xx
// effect glides from the currently playing pitch instead of restarting the
// voice.
func (c *channel) usePeriodPortamento(slide uint8) {
	if slide != 0 {
		c.input.portamentoSlide = slide
	}
	c.rowEffects.periodEffect = periodEffectPortamento
	c.tickState.actions &^= actionRetrig
}

func (c *channel) usePeriodVibrato(speed, depth uint8) {
	if speed != 0 {
		c.input.vibratoSpeed = speed
	}
	if depth != 0 {
		c.input.vibratoDepth = depth
	}
	c.rowEffects.periodEffect = periodEffectVibrato
}

func (c *channel) setSampleOffset(offset uint8) {
	if offset != 0 {
		c.input.sampleOffset = offset
	}
	c.tickState.actions |= actionUseSampleOffset
}

func (c *channel) useNoteRepeat(ticks uint8) {
	if ticks != 0 {
		c.rowEffects.noteParam = ticks
		c.rowEffects.noteEffect = noteEffectRepeat
		c.tickState.actions |= actionRetrig
	}
}

// useNoteCut(0) is special-cased by Protracker convention: it means "cut
// right now", not "cut on tick 0", so it zeroes volume immediately instead
// of scheduling a note effect.
func (c *channel) useNoteCut(ticks uint8) {
	if ticks != 0 {
		c.rowEffects.noteParam = ticks
		c.rowEffects.noteEffect = noteEffectCut
		return
	}
	c.state.volume = 0
	c.tickState.volume = 0
	c.tickState.actions |= actionUpdateVolume
	c.rowEffects.volumeEffect = volEffectNone
}

func (c *channel) useNoteDelay(ticks uint8) {
	c.rowEffects.noteParam = ticks
	c.rowEffects.noteEffect = noteEffectDelay
	captured := c.tickState.actions & (actionRetrig | actionLoadSample)
	c.rowState.delayedActions = captured
	c.tickState.actions &^= actionRetrig | actionLoadSample
}

func (c *channel) useArpeggio(note2, note3 uint8) {
	c.rowEffects.arpeggioParams[0] = 0
	c.rowEffects.arpeggioParams[1] = note2
	c.rowEffects.arpeggioParams[2] = note3
	c.rowEffects.arpeggioEffect = arpeggioEffectArpeggio
}

// --- per-tick progressions ---

func (c *channel) internalUpdateVolume() {
	switch c.rowEffects.volumeEffect {
	case volEffectDec:
		c.state.volume = saturatingSubVolume(c.state.volume, c.rowEffects.volumeParam)
		c.tickState.volume = c.state.volume
		c.tickState.actions |= actionUpdateVolume
	case volEffectInc:
		c.state.volume = saturatingAddVolume(c.state.volume, c.rowEffects.volumeParam)
		c.tickState.volume = c.state.volume
		c.tickState.actions |= actionUpdateVolume
	case volEffectTremolo:
		idx := uint8(c.state.tremoloPos) & 31
		delta := int16(sineTable[idx]) * int16(c.input.tremoloDepth) / 64
		var tick int16
		if c.state.tremoloPos >= 0 {
			tick = int16(c.state.volume) + delta
		} else {
			tick = int16(c.state.volume) - delta
		}
		c.tickState.volume = int8(clampI16(tick, 0, maxVolume))
		c.tickState.actions |= actionUpdateVolume

		c.state.tremoloPos += int8(c.input.tremoloSpeed)
		if c.state.tremoloPos >= 32 {
			c.state.tremoloPos -= 64
		}
	}
}

func (c *channel) internalUpdateNote() {
	switch c.rowEffects.noteEffect {
	case noteEffectCut:
		if c.rowState.tickCounter == c.rowEffects.noteParam {
			c.state.volume = 0
			c.tickState.volume = 0
			c.tickState.actions |= actionUpdateVolume
			c.rowEffects.reset()
		}
	case noteEffectDelay:
		if c.rowState.tickCounter == c.rowEffects.noteParam {
			c.tickState.actions |= c.rowState.delayedActions
			c.rowEffects.reset()
		}
	case noteEffectRepeat:
		if c.rowEffects.noteParam != 0 && c.rowState.tickCounter%c.rowEffects.noteParam == 0 {
			c.tickState.actions |= actionRetrig
		}
	}
}

func (c *channel) internalUpdatePeriod() {
	switch c.rowEffects.periodEffect {
	case periodEffectPortamento:
		if c.input.period != 0 {
			if c.state.period < c.input.period {
				c.state.period += uint16(c.input.portamentoSlide)
				if c.state.period > c.input.period {
					c.state.period = c.input.period
				}
			} else if c.state.period > c.input.period {
				c.state.period -= uint16(c.input.portamentoSlide)
				if c.state.period < c.input.period {
					c.state.period = c.input.period
				}
			}
			c.tickState.period = c.state.period
			c.tickState.actions |= actionUpdatePeriod
		}
	case periodEffectDec:
		c.state.period = clampU16(c.state.period-uint16min(c.rowEffects.periodParam, c.state.period), c.opts.minPeriod(), c.opts.maxPeriod())
		c.tickState.period = c.state.period
		c.tickState.actions |= actionUpdatePeriod
	case periodEffectInc:
		c.state.period = clampU16(c.state.period+uint16(c.rowEffects.periodParam), c.opts.minPeriod(), c.opts.maxPeriod())
		c.tickState.period = c.state.period
		c.tickState.actions |= actionUpdatePeriod
	case periodEffectVibrato:
		idx := uint8(c.state.vibratoPos) & 31
		delta := int32(sineTable[idx]) * int32(c.input.vibratoDepth) / 128
		var tick int32
		if c.state.vibratoPos >= 0 {
			tick = int32(c.tickState.period) + delta
		} else {
			tick = int32(c.tickState.period) - delta
		}
		if tick < 0 {
			tick = 0
		}
		c.tickState.period = uint16(tick)
		c.tickState.actions |= actionUpdatePeriod

		c.state.vibratoPos += int8(c.input.vibratoSpeed)
		if c.state.vibratoPos >= 32 {
			c.state.vibratoPos -= 64
		}
	}

	if c.rowEffects.arpeggioEffect == arpeggioEffectArpeggio {
		c.tickState.actions |= actionUpdatePeriod | actionUseArpeggio
	}
}

func (c *channel) internalLoadSample() {
	if c.tickState.actions&actionLoadSample == 0 {
		return
	}
	c.state.sample = c.input.sample
	if c.state.sample != nil {
		c.state.volume = c.state.sample.volume
	}
	c.tickState.volume = c.state.volume
	c.tickState.actions &^= actionLoadSample
	c.tickState.actions |= actionUpdateVolume
}

func (c *channel) internalPerformActions() {
	c.internalLoadSample()

	if c.tickState.actions&actionRetrig != 0 {
		c.state.period = c.input.period
		c.state.vibratoPos = 0
		c.state.tremoloPos = 0

		var offset uint8
		if c.tickState.actions&actionUseSampleOffset != 0 {
			offset = c.input.sampleOffset
		}
		c.samp.retrig(c.state.sample, c.state.period, offset, c.state.volume)
		return
	}

	if c.tickState.actions&actionUpdateVolume != 0 {
		c.samp.setVolume(c.tickState.volume)
	}

	if c.tickState.actions&actionUpdatePeriod != 0 {
		period := c.tickState.period
		if c.tickState.actions&actionUseArpeggio != 0 {
			shift := c.rowEffects.arpeggioParams[c.rowState.tickCounter%arpeggioPeriod]
			if shift != 0 {
				period = uint16((uint32(period) * arpeggioTable[shift-1]) >> 16)
			}
		}
		period = clampU16(period, c.opts.minPeriod(), c.opts.maxPeriod())
		c.samp.setPeriod(period)
	}
}

func saturatingAddVolume(v int8, d uint8) int8 {
	sum := int16(v) + int16(d)
	return int8(clampI16(sum, 0, maxVolume))
}

func saturatingSubVolume(v int8, d uint8) int8 {
	diff := int16(v) - int16(d)
	return int8(clampI16(diff, 0, maxVolume))
}

func uint16min(d uint8, cap uint16) uint16 {
	if uint16(d) > cap {
		return cap
	}
	return uint16(d)
}
