// mod8_player.go - tracker-tick row/pattern sequencing and effect dispatch
//
// Player runs on two clocks. Advance() is the audio-sample clock: it drives
// every channel's Sampler and the Timer, and is safe to call from an
// interrupt or a tight real-time loop with no allocation. Whenever the
// Timer fires, Advance() calls Update(), the tracker-tick clock: row and
// pattern sequencing, effect parsing, and dispatch into each channel's
// row-level setters. Splitting the two this way mirrors the reference
// player's ISR/foreground split, replaced here with an explicit call graph
// instead of a real interrupt.

package main

import "sync/atomic"

// Mode selects how the Player behaves when it runs off the end of the
// order list or hits a backward jump.
type Mode uint8

const (
	ModePlaySongOnce Mode = iota
	ModeLoopSongOnce
	ModeLoopSong
	ModeLoopPattern
)

// UpdateResult is returned by Update so a non-blocking host loop can tell
// whether a tracker tick actually happened this call.
type UpdateResult uint8

const (
	ResultInactive UpdateResult = iota
	ResultIdle
	ResultTick
)

// Stats is the host-facing playback summary: the highest BPM the song has
// requested via an Fxx effect, and total elapsed playback time in audio
// samples.
type Stats struct {
	MaxBPM           uint8
	PlaybackDuration uint64
}

// Position is a convenience snapshot of the current song/pattern/row for
// host UIs; not part of the core scheduling contract.
type Position struct {
	SongPosition uint8
	Pattern      uint8
	Row          uint8
	Speed        uint8
	Playing      bool
}

type songState struct {
	songPosition uint8
	loopCounter  uint8
}

type playerRowState struct {
	tick             uint8
	row              uint8
	patternDelay     uint8
	patternLoopRow   uint8
	patternLoopCount uint8
}

// Player is the top-level MOD playback engine: one song, four channels, one
// tick timer.
type Player struct {
	opts Options
	sink EventSink

	song *song

	channels [numChannels]*channel
	timer    timer

	mode    Mode
	playing atomic.Bool

	songState songState
	rowState  playerRowState
	speed     uint8

	pendingStop        bool
	pendingOrderJump   bool
	jumpOrder          uint8
	pendingRowBreak    bool
	breakRow           uint8
	pendingPatternLoop bool

	downsamplePhase uint8
	lastLeft        int16
	lastRight       int16

	stats Stats
}

// NewPlayer constructs a Player with no song loaded. sink may be nil, in
// which case all events are discarded.
func NewPlayer(opts Options) *Player {
	return &Player{opts: opts, sink: noSink{}}
}

// SetEventSink installs a notification sink, replacing the default no-op.
func (p *Player) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = noSink{}
	}
	p.sink = sink
}

// SetMode changes the loop behavior, effective from the next row fetch.
func (p *Player) SetMode(mode Mode) {
	p.mode = mode
}

// Load parses data as a Protracker MOD file and arms the Player to play it
// from the start. Returns false (and reports a Message via the event sink)
// if the data isn't a supported module.
func (p *Player) Load(data []byte) bool {
	p.playing.Store(false)

	s, ok := parseSong(data, p.opts, p.sink)
	if !ok {
		p.sink.OnSongLoadError(SongInfo{})
		return false
	}
	p.song = s

	for i := range p.channels {
		p.channels[i] = newChannel(data, p.opts)
	}
	p.timer.reset(p.opts.samplesPerVblank())

	p.resetSongState()
	return true
}

func (p *Player) resetSongState() {
	p.songState = songState{}
	p.rowState = playerRowState{}
	p.speed = initialSpeed
	p.pendingStop = false
	p.pendingOrderJump = false
	p.pendingRowBreak = false
	p.pendingPatternLoop = false
	p.timer.reset(p.opts.samplesPerVblank())
	for _, c := range p.channels {
		c.reset()
	}
}

// Play (re)starts playback from the beginning of the song in the given
// mode. The song must already be Load()ed. Mirrors the reference player's
// load(), which fetches pattern 0 and row 0 before arming playback rather
// than waiting for the first tracker tick.
func (p *Player) Play(mode Mode) {
	if p.song == nil {
		return
	}
	p.mode = mode
	p.resetSongState()
	p.fetchPattern()
	p.fetchRow()
	p.playing.Store(true)
}

// Stop halts playback; Advance() becomes a silent pass-through until Play
// is called again.
func (p *Player) Stop() {
	p.playing.Store(false)
}

// IsPlaying reports whether the tracker-tick clock is currently advancing.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// GetStats returns the highest requested BPM and total elapsed playback
// time in audio samples.
func (p *Player) GetStats() Stats {
	return p.stats
}

// GetPosition snapshots the current song/pattern/row for host UIs.
func (p *Player) GetPosition() Position {
	return Position{
		SongPosition: p.songState.songPosition,
		Pattern:      p.currentPattern(),
		Row:          p.rowState.row,
		Speed:        p.speed,
		Playing:      p.playing.Load(),
	}
}

func (p *Player) currentPattern() uint8 {
	if p.song == nil || int(p.songState.songPosition) >= len(p.song.orderList) {
		return 0
	}
	return p.song.orderList[p.songState.songPosition]
}

// Advance runs exactly one audio sample's worth of work: fetch one PCM
// sample per channel, mix to stereo, and clock the tracker-tick timer. No
// allocation; safe for a tight real-time loop or an interrupt handler.
func (p *Player) Advance() (left, right int16) {
	factor := p.opts.downsamplingFactor()

	if factor == 1 {
		for i := range p.channels {
			p.channels[i].fetchSample()
		}
		left = scaleMix(p.channels[0].sampler().getSample(), p.channels[3].sampler().getSample())
		right = scaleMix(p.channels[1].sampler().getSample(), p.channels[2].sampler().getSample())
		p.lastLeft, p.lastRight = left, right
	} else if p.downsamplePhase == 0 {
		p.channels[0].fetchSample()
		p.channels[3].fetchSample()
		newLeft := scaleMix(p.channels[0].sampler().getSample(), p.channels[3].sampler().getSample())
		if p.opts.DownsamplingWithLerp {
			left = avgI16(p.lastLeft, newLeft)
		} else {
			left = newLeft
		}
		p.lastLeft = newLeft
		right = p.lastRight
		p.downsamplePhase = 1
	} else {
		p.channels[1].fetchSample()
		p.channels[2].fetchSample()
		newRight := scaleMix(p.channels[1].sampler().getSample(), p.channels[2].sampler().getSample())
		if p.opts.DownsamplingWithLerp {
			right = avgI16(p.lastRight, newRight)
		} else {
			right = newRight
		}
		p.lastRight = newRight
		left = p.lastLeft
		p.downsamplePhase = 0
	}

	p.timer.clock()
	p.Update()
	return left, right
}

// scaleMix sums two voice outputs and doubles the result to use the full
// 15-bit dynamic range a two-channel sum would otherwise only half-fill.
func scaleMix(a, b int16) int16 {
	return (a + b) * 2
}

func avgI16(a, b int16) int16 {
	return int16((int32(a) + int32(b)) / 2)
}

// Update is the tracker-tick clock: row/pattern sequencing and effect
// dispatch. Safe to call once per Advance; it is a no-op (ResultIdle)
// unless the Timer has fired since the last call.
func (p *Player) Update() UpdateResult {
	if !p.playing.Load() || p.song == nil {
		return ResultInactive
	}
	if !p.timer.isFired() {
		return ResultIdle
	}

	p.stats.PlaybackDuration += uint64(p.timer.getPeriod()) * uint64(p.opts.downsamplingFactor())

	p.rowState.tick++
	if p.rowState.tick >= p.speed {
		p.rowState.tick = 0
		if p.rowState.patternDelay > 0 {
			p.rowState.patternDelay--
		} else if !p.internalFetchNextRow() {
			p.playing.Store(false)
			p.sink.OnPlaySongEnd(SongInfo{
				Name: p.song.name, Tag: p.song.tag,
				OrderCount: p.song.orderCount, PatternCount: p.song.patternCount,
			})
			return ResultTick
		}
	}

	for i := range p.channels {
		p.channels[i].tick()
	}

	return ResultTick
}

// internalFetchNextRow resolves pending jump/break/loop actions recorded by
// the previous fetchRow into this tick's row and order, applying Mode's
// end-of-song policy, then fetches the resolved row. Returns false when
// playback should stop. A same-order row step within a pattern is never a
// loop-back: only an explicit backward/out-of-range order jump (0xB) or an
// actual order wrap past the end of the order list is ever tested against
// Mode's stop/loop policy.
func (p *Player) internalFetchNextRow() bool {
	if p.pendingStop {
		return false
	}

	if p.pendingPatternLoop {
		p.rowState.row = p.rowState.patternLoopRow
	} else {
		p.rowState.row++
		orderAdvance := p.rowState.row == numRows || p.pendingRowBreak || p.pendingOrderJump

		if orderAdvance {
			if p.mode != ModeLoopPattern {
				if p.pendingOrderJump {
					if p.jumpOrder <= p.songState.songPosition {
						if p.mode == ModePlaySongOnce {
							return false
						}
						if p.mode == ModeLoopSongOnce {
							if p.songState.loopCounter == 1 {
								return false
							}
							p.songState.loopCounter++
						}
					} else if int(p.jumpOrder) >= int(p.song.orderCount) {
						return false
					}
					p.songState.songPosition = p.jumpOrder
				} else {
					p.songState.songPosition++
					if int(p.songState.songPosition) >= int(p.song.orderCount) {
						p.songState.songPosition = 0
						if p.mode != ModeLoopSong {
							return false
						}
					}
				}
			}

			p.rowState.patternLoopRow = 0
			p.rowState.patternLoopCount = 0

			if p.pendingRowBreak {
				if p.breakRow >= numRows {
					return false
				}
				p.rowState.row = p.breakRow
			} else {
				p.rowState.row = 0
			}

			p.fetchPattern()
		}
	}

	p.pendingPatternLoop = false
	p.pendingOrderJump = false
	p.pendingRowBreak = false
	p.fetchRow()
	return true
}

// fetchPattern notifies the sink of the current order/pattern. Called once
// at Play() time and again every time internalFetchNextRow advances past
// the end of a pattern.
func (p *Player) fetchPattern() {
	p.sink.OnPlayPattern(p.songState.songPosition, p.currentPattern())
}

// fetchRow parses the current row's four cells and dispatches their
// effects into each channel and into this Player's own row/pattern state.
func (p *Player) fetchRow() {
	patternNo := p.currentPattern()
	row := p.song.patterns[patternNo].cells[p.rowState.row]

	p.sink.OnPlayRowBegin(p.rowState.row)

	for ch := 0; ch < numChannels; ch++ {
		cell := row[ch]
		c := p.channels[ch]

		c.resetRow()

		if cell.sampleNo != 0 && int(cell.sampleNo) <= numSamples {
			c.setSample(&p.song.samples[cell.sampleNo-1])
		}

		hi := hiNibble(cell.param)
		lo := loNibble(cell.param)

		switch cell.effect {
		case 0x3, 0x5:
			c.setPortamentoTarget(cell.period)
		default:
			if cell.period != 0 {
				c.setPeriod(cell.period)
			}
		}

		switch cell.effect {
		case 0x0:
			if cell.param != 0 {
				c.useArpeggio(hi, lo)
			}
		case 0x1:
			c.usePeriodDec(cell.param)
		case 0x2:
			c.usePeriodInc(cell.param)
		case 0x3:
			c.usePeriodPortamento(cell.param)
		case 0x4:
			c.usePeriodVibrato(hi, lo)
		case 0x5:
			c.usePeriodPortamento(0)
			c.useVolumeDec(lo)
			c.useVolumeInc(hi)
		case 0x6:
			c.usePeriodVibrato(0, 0)
			c.useVolumeDec(lo)
			c.useVolumeInc(hi)
		case 0x7:
			c.useVolumeTremolo(hi, lo)
		case 0x9:
			c.setSampleOffset(cell.param)
		case 0xA:
			c.useVolumeDec(lo)
			c.useVolumeInc(hi)
		case 0xB:
			p.pendingOrderJump = true
			p.jumpOrder = cell.param
		case 0xC:
			c.setVolume(cell.param)
		case 0xD:
			p.pendingRowBreak = true
			p.breakRow = clampU8(hi*10+lo, 0, numRows-1)
		case 0xE:
			p.dispatchExtended(c, hi, lo)
		case 0xF:
			p.dispatchSpeed(cell.param)
		default:
			p.sink.OnMessage(MsgUnsupportedEffect, int(cell.effect))
		}

		if cell.period != 0 || cell.sampleNo != 0 || cell.effect != 0 || cell.param != 0 {
			p.sink.OnPlayNote(uint8(ch), cell.period, cell.sampleNo, cell.effect, cell.param)
		}
	}

	p.sink.OnPlayRowEnd()
}

func (p *Player) dispatchExtended(c *channel, sub, param uint8) {
	switch sub {
	case 0x1:
		c.decPeriod(param)
	case 0x2:
		c.incPeriod(param)
	case 0x6:
		p.dispatchPatternLoop(param)
	case 0x9:
		c.useNoteRepeat(param)
	case 0xA:
		c.incVolume(param)
	case 0xB:
		c.decVolume(param)
	case 0xC:
		c.useNoteCut(param)
	case 0xD:
		c.useNoteDelay(param)
	case 0xE:
		p.rowState.patternDelay = param
	default:
		p.sink.OnMessage(MsgUnsupportedEffect, int(sub))
	}
}

func (p *Player) dispatchPatternLoop(param uint8) {
	if param == 0 {
		p.rowState.patternLoopRow = p.rowState.row
		return
	}
	if p.rowState.patternLoopCount == 0 {
		p.rowState.patternLoopCount = param
		p.pendingPatternLoop = true
		return
	}
	p.rowState.patternLoopCount--
	if p.rowState.patternLoopCount > 0 {
		p.pendingPatternLoop = true
	}
}

func (p *Player) dispatchSpeed(param uint8) {
	if param <= maxTicksPerRow {
		if param == 0 {
			if p.opts.StopOnF00 {
				p.pendingStop = true
			}
			return
		}
		p.speed = param
		return
	}
	if param > p.stats.MaxBPM {
		p.stats.MaxBPM = param
	}
	tickPeriod := uint32(5) * p.opts.MixingFreq / uint32(param) / 2
	p.timer.setPeriod(uint16(tickPeriod))
}
