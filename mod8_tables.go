// mod8_tables.go - precomputed finetune/sine/arpeggio lookup tables
//
// The speed table entries are derived, not hand-transcribed: each is the
// Paula clock scaled into the mixing-rate domain and then corrected by a
// finetune's cents offset, exactly as mod8::internal::calc_speed computes
// them. Deriving them from the same integer formula the reference player
// uses is the only way to be sure they land on the exact values bit-exact
// playback depends on.

package main

// speedTable holds, per finetune (0..15, MOD convention: 0..7 are
// +0..+87.5 cents, 8..15 are -100..-12.5 cents), the fixed-point 18.14
// constant phaseIncrement derives phase rate from.
var speedTable = buildSpeedTable(samplingFreqDefault)

// finetuneCents are the correction factors for each finetune slot, expressed
// as (integer, fractional-in-1/16384ths) pairs matching the 2.14 fixed-point
// cents-correction factor used by the reference implementation.
var finetuneCents = [numFinetunes][2]uint16{
	{1, 0},     // +0
	{1, 118},   // +12.5 cents
	{1, 238},   // +25.0 cents
	{1, 358},   // +37.5 cents
	{1, 480},   // +50.0 cents
	{1, 602},   // +62.5 cents
	{1, 725},   // +75.0 cents
	{1, 849},   // +87.5 cents
	{0, 15464}, // -100.0 cents
	{0, 15576}, // -87.5 cents
	{0, 15689}, // -75.0 cents
	{0, 15803}, // -62.5 cents
	{0, 15917}, // -50.0 cents
	{0, 16032}, // -37.5 cents
	{0, 16149}, // -25.0 cents
	{0, 16266}, // -12.5 cents
}

const (
	maxSpeedIndex = 7
	minSpeedIndex = 8
)

// playerSpeedConstant is the 18.14 fixed-point ratio of the Paula clock to
// the mixing frequency, the base speed before any finetune correction.
func playerSpeedConstant(mixingFreq uint32) uint32 {
	return fixpFraction14(amigaPaulaClockFreq, mixingFreq)
}

// calcSpeed multiplies the base speed constant by a 2.14 correction factor,
// mirroring mod8::internal::calc_speed bit for bit.
func calcSpeed(base uint32, intgr, fract uint16) uint32 {
	correction := makeFixp14(uint32(intgr), uint32(fract))
	return uint32((uint64(base) * uint64(correction)) / 16384)
}

func buildSpeedTable(mixingFreq uint32) [numFinetunes]uint32 {
	base := playerSpeedConstant(mixingFreq)
	var table [numFinetunes]uint32
	for i, c := range finetuneCents {
		table[i] = calcSpeed(base, c[0], c[1])
	}
	return table
}

// minLoopLength is the shortest loop region the Sampler will honor; shorter
// loops are muted (treated as loopless, truncated to a single sample) since
// correctly interpolating them would require sub-byte phase tracking the
// ISR budget can't afford. Derived from the fastest possible phase advance
// at the shortest period, so one fetch_sample() step can never overshoot a
// genuine loop region in a single call.
func minLoopLength(table [numFinetunes]uint32, minPeriod uint16) uint16 {
	return uint16(uint64(table[maxSpeedIndex])/uint64(minPeriod)/16384) + 1
}

// sineTable is the classic Protracker 32-entry quarter-wave sine table used
// by both vibrato and tremolo: SineTable[0] == 0, peak 255 at index 16,
// symmetric about that peak.
var sineTable = [32]uint8{
	0, 24, 49, 74, 97, 120, 141, 161,
	180, 197, 212, 224, 235, 244, 250, 253,
	255, 253, 250, 244, 235, 224, 212, 197,
	180, 161, 141, 120, 97, 74, 49, 24,
}

// arpeggioTable holds 15 entries of 0.16 fixed-point pitch-shift multipliers
// approximating 2^(-k/12) for k in [1,15], one per halftone shift above the
// base note (index k-1 -> shift by k halftones). Period scales inversely
// with frequency, so multiplying a period by this factor raises the pitch
// by k halftones.
var arpeggioTable = [15]uint32{
	61857, 58385, 55108, 52015, 49096, 46340, 43740,
	41285, 38967, 36780, 34716, 32768, 30928, 29192, 27554,
}
