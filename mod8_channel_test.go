package main

import "testing"

func newTestChannel() *channel {
	return newChannel(make([]byte, 4096), testOpts())
}

func TestChannelSetVolumeClampsToMax(t *testing.T) {
	c := newTestChannel()
	c.setVolume(200)
	if c.state.volume != maxVolume {
		t.Fatalf("setVolume(200) should clamp to %d, got %d", maxVolume, c.state.volume)
	}
}

func TestChannelIncVolumeSaturates(t *testing.T) {
	c := newTestChannel()
	c.state.volume = 60
	c.incVolume(10)
	if c.state.volume != maxVolume {
		t.Fatalf("incVolume past max should saturate at %d, got %d", maxVolume, c.state.volume)
	}
}

func TestChannelDecVolumeSaturates(t *testing.T) {
	c := newTestChannel()
	c.state.volume = 5
	c.decVolume(10)
	if c.state.volume != 0 {
		t.Fatalf("decVolume past zero should saturate at 0, got %d", c.state.volume)
	}
}

func TestChannelUseVolumeDecIncStickyOnZero(t *testing.T) {
	c := newTestChannel()
	c.useVolumeDec(5)
	c.useVolumeDec(0) // zero delta must not clear the previous selection
	if c.rowEffects.volumeEffect != volEffectDec || c.rowEffects.volumeParam != 5 {
		t.Fatalf("a zero-delta useVolumeDec must leave the sticky selector untouched, got effect=%v param=%d", c.rowEffects.volumeEffect, c.rowEffects.volumeParam)
	}
}

func TestChannelCombinedVolumeSlideIncWinsOverDec(t *testing.T) {
	// Effects 5xy/6xy/Axy call useVolumeDec(lo) then useVolumeInc(hi); when
	// both nibbles are non-zero, inc must be the one that actually runs
	// since it overwrites the selector last.
	c := newTestChannel()
	c.useVolumeDec(3)
	c.useVolumeInc(7)
	if c.rowEffects.volumeEffect != volEffectInc {
		t.Fatalf("expected inc to win when both nibbles are non-zero, got %v", c.rowEffects.volumeEffect)
	}
	if c.rowEffects.volumeParam != 7 {
		t.Fatalf("expected the winning inc's param 7, got %d", c.rowEffects.volumeParam)
	}
}

func TestChannelUsePeriodIncDecNotSticky(t *testing.T) {
	c := newTestChannel()
	c.usePeriodInc(5)
	c.usePeriodDec(0) // unlike volume, this overwrites even with a zero delta
	if c.rowEffects.periodEffect != periodEffectDec || c.rowEffects.periodParam != 0 {
		t.Fatalf("usePeriodDec(0) must overwrite the selector, got effect=%v param=%d", c.rowEffects.periodEffect, c.rowEffects.periodParam)
	}
}

func TestChannelPortamentoClearsPendingRetrig(t *testing.T) {
	c := newTestChannel()
	c.setPeriod(300)
	if c.tickState.actions&actionRetrig == 0 {
		t.Fatalf("setPeriod should schedule a retrig")
	}
	c.usePeriodPortamento(10)
	if c.tickState.actions&actionRetrig != 0 {
		t.Fatalf("usePeriodPortamento should clear a pending retrig so the voice glides instead of restarting")
	}
}

func TestChannelSetPortamentoTargetDoesNotScheduleRetrig(t *testing.T) {
	c := newTestChannel()
	c.setPortamentoTarget(300)
	if c.tickState.actions&actionRetrig != 0 {
		t.Fatalf("setPortamentoTarget must never schedule a retrig")
	}
	if c.input.period != 300 {
		t.Fatalf("setPortamentoTarget should record the glide target, got %d", c.input.period)
	}
}

func TestChannelNoteCutZeroTicksAppliesImmediately(t *testing.T) {
	c := newTestChannel()
	c.state.volume = 40
	c.useNoteCut(0)
	if c.state.volume != 0 {
		t.Fatalf("useNoteCut(0) should zero volume immediately, got %d", c.state.volume)
	}
	if c.rowEffects.noteEffect != noteEffectNone {
		t.Fatalf("useNoteCut(0) should not schedule a per-tick note effect")
	}
}

func TestChannelNoteCutNonZeroDefersToTick(t *testing.T) {
	c := newTestChannel()
	c.state.volume = 40
	c.useNoteCut(3)
	if c.state.volume != 40 {
		t.Fatalf("useNoteCut(3) must not change volume immediately, got %d", c.state.volume)
	}
	if c.rowEffects.noteEffect != noteEffectCut || c.rowEffects.noteParam != 3 {
		t.Fatalf("useNoteCut(3) should schedule a tick-3 cut, got effect=%v param=%d", c.rowEffects.noteEffect, c.rowEffects.noteParam)
	}
}

func TestChannelNoteDelayCapturesAndStripsRetrig(t *testing.T) {
	c := newTestChannel()
	c.setSample(&sample{begin: 0, end: 8, volume: 64})
	c.setPeriod(214)
	if c.tickState.actions&(actionRetrig|actionLoadSample) != actionRetrig|actionLoadSample {
		t.Fatalf("expected both retrig and loadSample scheduled before the delay is applied")
	}
	c.useNoteDelay(3)
	if c.tickState.actions&(actionRetrig|actionLoadSample) != 0 {
		t.Fatalf("useNoteDelay should strip retrig/loadSample from the current tick")
	}
	if c.rowState.delayedActions&(actionRetrig|actionLoadSample) != actionRetrig|actionLoadSample {
		t.Fatalf("useNoteDelay should capture the stripped actions for replay on the delayed tick")
	}
}

func TestChannelResetRowPreservesEffectParams(t *testing.T) {
	c := newTestChannel()
	c.useVolumeDec(9)
	c.resetRow()
	if c.rowEffects.volumeEffect != volEffectNone {
		t.Fatalf("resetRow should clear the effect selector")
	}
	if c.rowEffects.volumeParam != 9 {
		t.Fatalf("resetRow should NOT clear sticky params, got %d", c.rowEffects.volumeParam)
	}
}

func TestChannelTickAppliesSelectedVolumeSlide(t *testing.T) {
	c := newTestChannel()
	c.state.volume = 30
	c.useVolumeInc(5)
	c.rowState.tickCounter = 1 // only ticks after tick 0 apply the row's slide
	c.tick()
	if c.state.volume != 35 {
		t.Fatalf("tick() with a pending +5 volume slide should raise volume to 35, got %d", c.state.volume)
	}
}

func TestChannelTickZeroSkipsEffectEvaluation(t *testing.T) {
	c := newTestChannel()
	c.state.volume = 30
	c.useVolumeInc(5)
	c.rowState.tickCounter = 0
	c.tick()
	if c.state.volume != 30 {
		t.Fatalf("tick 0 should not apply the row's volume slide, got %d", c.state.volume)
	}
}
