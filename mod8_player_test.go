package main

import "testing"

func newTestPlayer(t *testing.T) (*Player, *collectingSink) {
	t.Helper()
	data := buildMinimalMOD()
	sink := &collectingSink{}
	p := NewPlayer(DefaultOptions())
	p.SetEventSink(sink)
	if !p.Load(data) {
		t.Fatalf("Load failed: %v", sink.messages)
	}
	return p, sink
}

func TestPlayerUpdateIsInactiveBeforePlay(t *testing.T) {
	p, _ := newTestPlayer(t)
	if got := p.Update(); got != ResultInactive {
		t.Fatalf("Update() before Play() = %v, want ResultInactive", got)
	}
}

func TestPlayerUpdateIsIdleBetweenTimerFires(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	if got := p.Update(); got != ResultIdle {
		t.Fatalf("Update() immediately after Play() (timer not yet fired) = %v, want ResultIdle", got)
	}
}

func TestPlayerAdvanceProducesTickEventually(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)

	period := int(p.opts.samplesPerVblank())
	sawTick := false
	for i := 0; i < period+1; i++ {
		p.Advance()
		if p.timer.fireCounterLast > 0 {
			sawTick = true
		}
	}
	if !sawTick {
		t.Fatalf("expected the timer to fire within one VBlank period of samples")
	}
}

func TestPlayerPlaySongOnceStopsAtLoopBack(t *testing.T) {
	// buildMinimalMOD has a single order (orderCount=1), so the very first
	// row-advance past row 63 is a loop-back to order 0.
	p, sink := newTestPlayer(t)
	p.Play(ModePlaySongOnce)

	samplesPerVblank := int(p.opts.samplesPerVblank())
	totalRows := numRows + 1 // enough ticks to walk past the only pattern
	for i := 0; i < samplesPerVblank*int(initialSpeed)*totalRows; i++ {
		p.Advance()
		if !p.IsPlaying() {
			break
		}
	}
	if p.IsPlaying() {
		t.Fatalf("ModePlaySongOnce should stop once the single order loops back")
	}
	if sink.messages != nil {
		for _, m := range sink.messages {
			if m == MsgUnsupportedEffect {
				t.Fatalf("unexpected unsupported-effect message in a MOD with no effects: %v", sink.messages)
			}
		}
	}
}

func TestPlayerLoopSongOnceStopsAtFirstWrapWithoutExplicitJump(t *testing.T) {
	// buildMinimalMOD has a single order and no effects at all, so running
	// off the end of the order list here is an ordinary wrap, not an
	// explicit backward order jump (effect 0xB). The reference only grants
	// LoopSongOnce's one-more-lap grace period on an explicit backward or
	// out-of-range jump_to_order; an implicit end-of-list wrap stops
	// immediately whenever mode != LOOP_SONG, same as PlaySongOnce.
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSongOnce)

	samplesPerVblank := int(p.opts.samplesPerVblank())
	budget := samplesPerVblank * int(initialSpeed) * numRows * 3 / 2
	stoppedAt := -1
	for i := 0; i < budget; i++ {
		p.Advance()
		if !p.IsPlaying() {
			stoppedAt = i
			break
		}
	}
	if stoppedAt == -1 {
		t.Fatalf("ModeLoopSongOnce never stopped within %d samples", budget)
	}
}

func TestPlayerLoopSongOnceGrantsOneExtraLapOnExplicitBackwardJump(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSongOnce)

	p.pendingOrderJump = true
	p.jumpOrder = 0
	if !p.internalFetchNextRow() {
		t.Fatalf("the first explicit backward order jump should grant one more lap, not stop immediately")
	}
	if p.songState.loopCounter != 1 {
		t.Fatalf("loopCounter should be armed at 1 after the first backward jump, got %d", p.songState.loopCounter)
	}

	p.pendingOrderJump = true
	p.jumpOrder = 0
	if p.internalFetchNextRow() {
		t.Fatalf("the second explicit backward order jump should stop playback")
	}
}

func TestPlayerPlaySongOncePlaysEveryRowBeforeStopping(t *testing.T) {
	// Pins the literal behavior the loose "stops eventually" tests above
	// could not catch: every row of the single pattern, including row 0,
	// must actually be dispatched before the player goes inactive.
	p, sink := newTestPlayer(t)
	p.Play(ModePlaySongOnce)

	samplesPerVblank := int(p.opts.samplesPerVblank())
	budget := samplesPerVblank * int(initialSpeed) * (numRows + 2)
	for i := 0; i < budget && p.IsPlaying(); i++ {
		p.Advance()
	}
	if p.IsPlaying() {
		t.Fatalf("ModePlaySongOnce should have stopped within %d samples", budget)
	}

	seen := make([]bool, numRows)
	for _, row := range sink.rowsBegun {
		seen[row] = true
	}
	for row := uint8(0); row < numRows; row++ {
		if !seen[row] {
			t.Fatalf("expected OnPlayRowBegin(%d) to fire before playback stopped, rows seen: %v", row, sink.rowsBegun)
		}
	}
}

func TestPlayerLoopSongNeverStopsOnItsOwn(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)

	samplesPerVblank := int(p.opts.samplesPerVblank())
	budget := samplesPerVblank * int(initialSpeed) * numRows * 3
	for i := 0; i < budget; i++ {
		p.Advance()
	}
	if !p.IsPlaying() {
		t.Fatalf("ModeLoopSong must keep playing indefinitely through repeated loop-backs")
	}
}

func TestPlayerSpeedEffectChangesTicksPerRow(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.dispatchSpeed(3)
	if p.speed != 3 {
		t.Fatalf("Fxx with xx<=31 should set speed directly, got %d", p.speed)
	}
}

func TestPlayerTempoEffectSetsMaxBPM(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.dispatchSpeed(140)
	stats := p.GetStats()
	if stats.MaxBPM != 140 {
		t.Fatalf("Fxx with xx>31 should record it as a BPM stat, got %d", stats.MaxBPM)
	}
}

func TestPlayerTempoEffectTracksHighWaterMark(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.dispatchSpeed(140)
	p.dispatchSpeed(100)
	if p.GetStats().MaxBPM != 140 {
		t.Fatalf("MaxBPM should keep the highest requested tempo, got %d", p.GetStats().MaxBPM)
	}
}

func TestPlayerF00WithoutStopOnF00IsIgnored(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.opts.StopOnF00 = false
	p.Play(ModeLoopSong)
	p.dispatchSpeed(0)
	if p.pendingStop {
		t.Fatalf("F00 should be ignored unless StopOnF00 is set")
	}
}

func TestPlayerF00WithStopOnF00SchedulesStop(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.opts.StopOnF00 = true
	p.Play(ModeLoopSong)
	p.dispatchSpeed(0)
	if !p.pendingStop {
		t.Fatalf("F00 with StopOnF00 should schedule an explicit stop")
	}
}

func TestPlayerRowBreakClampsToLastRow(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	// D-effect param encodes the target row in BCD-like hi*10+lo; ask for a
	// row beyond numRows-1 and expect it clamped.
	p.breakRow = clampU8(99, 0, numRows-1)
	if p.breakRow != numRows-1 {
		t.Fatalf("row break target should clamp to %d, got %d", numRows-1, p.breakRow)
	}
}

func TestPlayerPatternLoopEffectSetsLoopRow(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.rowState.row = 10
	p.dispatchPatternLoop(0) // E60 marks the loop-back point at the current row
	if p.rowState.patternLoopRow != 10 {
		t.Fatalf("E60 should record row 10 as the loop point, got %d", p.rowState.patternLoopRow)
	}
}

func TestPlayerPatternLoopEffectSchedulesLoopback(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.rowState.row = 10
	p.dispatchPatternLoop(0)
	p.rowState.row = 20
	p.dispatchPatternLoop(2) // loop twice
	if !p.pendingPatternLoop {
		t.Fatalf("E62 should schedule a pattern loop-back")
	}
	if p.rowState.patternLoopCount != 2 {
		t.Fatalf("loop count should be armed at 2, got %d", p.rowState.patternLoopCount)
	}
}

func TestPlayerOrderJumpEffect(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.pendingOrderJump = true
	p.jumpOrder = 0
	if !p.internalFetchNextRow() {
		t.Fatalf("internalFetchNextRow should accept an explicit order jump to order 0 under ModeLoopSong")
	}
	if p.songState.songPosition != 0 {
		t.Fatalf("order jump target should be applied, got songPosition=%d", p.songState.songPosition)
	}
}

func TestScaleMixDoublesSum(t *testing.T) {
	got := scaleMix(100, 50)
	if got != 300 {
		t.Fatalf("scaleMix(100,50) = %d, want (100+50)*2=300", got)
	}
}

func TestScaleMixStaysWithinInt16Range(t *testing.T) {
	got := scaleMix(8128, 8128)
	if got != 32512 {
		t.Fatalf("scaleMix(8128,8128) = %d, want 32512 (within int16 range)", got)
	}
	got = scaleMix(-8192, -8192)
	if got != -32768 {
		t.Fatalf("scaleMix(-8192,-8192) = %d, want -32768 (int16 minimum, no overflow)", got)
	}
}

func TestPlayerGetPositionReflectsSongState(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	pos := p.GetPosition()
	if !pos.Playing {
		t.Fatalf("GetPosition().Playing should be true right after Play()")
	}
	if pos.Speed != initialSpeed {
		t.Fatalf("GetPosition().Speed = %d, want initial speed %d", pos.Speed, initialSpeed)
	}
}

func TestPlayerStopMakesAdvanceSilentPassthrough(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play(ModeLoopSong)
	p.Stop()
	if p.IsPlaying() {
		t.Fatalf("Stop() should clear IsPlaying()")
	}
	if got := p.Update(); got != ResultInactive {
		t.Fatalf("Update() after Stop() = %v, want ResultInactive", got)
	}
}
