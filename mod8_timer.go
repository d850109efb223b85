// mod8_timer.go - tracker-tick pulse generator driven by the audio clock

package main

import "sync/atomic"

// timer is a pre-settable down-counter clocked once per audio sample. It
// counts from period down to 1, then reloads and increments a fire count.
// clock() runs on the interrupt clock; setPeriod() runs in the foreground
// and busy-waits on the loadNewPeriod handshake so at most one change is
// ever in flight, mirroring the reference Timer's volatile-flag protocol
// with an explicit atomic.
type timer struct {
	counter uint16
	period  uint16

	newPeriod     uint16
	loadNewPeriod atomic.Bool

	fireCounter     atomic.Uint32
	fireCounterLast uint32
}

// reset installs period immediately and clears all pending state.
func (t *timer) reset(period uint16) {
	t.newPeriod = period
	t.period = period
	t.counter = period
	t.loadNewPeriod.Store(false)
	t.fireCounter.Store(0)
	t.fireCounterLast = 0
}

// getPeriod returns the most recently requested period (staged or applied).
func (t *timer) getPeriod() uint16 {
	return t.newPeriod
}

// setPeriod stages newPeriod for the next clock() tick. Busy-waits on the
// handshake so a second call can't race ahead of the ISR consuming the
// first.
func (t *timer) setPeriod(newPeriod uint16) {
	for t.loadNewPeriod.Load() {
	}
	t.newPeriod = newPeriod
	t.loadNewPeriod.Store(true)
}

// clock advances the down-counter by one audio sample. Called from the
// interrupt context.
func (t *timer) clock() {
	if t.loadNewPeriod.Load() {
		t.period = t.newPeriod
		t.counter = t.newPeriod
		t.loadNewPeriod.Store(false)
	}

	t.counter--
	if t.counter == 0 {
		t.counter = t.period
		t.fireCounter.Add(1)
	}
}

// isFired returns true once per fire, comparing the fire counter against
// the last value this caller observed.
func (t *timer) isFired() bool {
	counter := t.fireCounter.Load()
	if counter == t.fireCounterLast {
		return false
	}
	t.fireCounterLast = counter
	return true
}
